package plansaver

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

func Save(plan Plan, w io.Writer) error {
	_, err := w.Write(MAGIC_BYTES)
	if err != nil {
		return err
	}

	err = binary.Write(w, binary.LittleEndian, COMPATIBILITY_LEVEL)
	if err != nil {
		return err
	}

	_, err = w.Write(marshalPlan(plan))
	return err
}

// SaveToFile writes the plan to name, zstd compressed when the name ends
// with .zst.
func SaveToFile(plan Plan, name string) error {
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("error creating plan file: %w", err)
	}
	defer file.Close()

	if !strings.HasSuffix(name, ".zst") {
		if err := Save(plan, file); err != nil {
			return fmt.Errorf("error writing plan: %w", err)
		}
		return file.Close()
	}

	enc, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("can`t create zstd writer: %w", err)
	}
	if err := Save(plan, enc); err != nil {
		enc.Close()
		return fmt.Errorf("error writing plan: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error flushing zstd stream: %w", err)
	}
	return file.Close()
}
