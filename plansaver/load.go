package plansaver

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/royalcat/spatialsample/geoio"
	"github.com/royalcat/spatialsample/samplemodel"
)

func Load(reader io.Reader, log *slog.Logger) (Plan, error) {
	magic := make([]byte, len(MAGIC_BYTES))
	_, err := io.ReadFull(reader, magic)
	if err != nil {
		return Plan{}, fmt.Errorf("error reading magic bytes: %w", err)
	}
	if string(magic) != string(MAGIC_BYTES) {
		return Plan{}, fmt.Errorf("%w: not a plan file, magic bytes %q", samplemodel.ErrInvalidArgument, magic)
	}

	var compatibilityLevel uint32
	err = binary.Read(reader, binary.LittleEndian, &compatibilityLevel)
	if err != nil {
		return Plan{}, fmt.Errorf("error reading compatibility level: %w", err)
	}
	if compatibilityLevel != COMPATIBILITY_LEVEL {
		return Plan{}, fmt.Errorf("%w: unsupported compatibility level: %d", samplemodel.ErrInvalidArgument, compatibilityLevel)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return Plan{}, fmt.Errorf("error reading plan body: %w", err)
	}
	plan, err := unmarshalPlan(body)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: error decoding plan: %s", samplemodel.ErrInvalidArgument, err.Error())
	}

	log.Info("Loaded plan metadata",
		"version", plan.Version,
		"method", plan.Method,
		"size", plan.Size,
		"date_created", plan.DateCreated,
	)
	return plan, nil
}

func LoadFromFile(name string, log *slog.Logger) (Plan, error) {
	reader, err := geoio.OpenReader(name)
	if err != nil {
		return Plan{}, fmt.Errorf("error opening plan file: %w", err)
	}
	defer reader.Close()

	return Load(reader, log)
}
