// Package geoio reads areas of interest and writes sampled points as WKT or
// GeoJSON.
package geoio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/spatialsample/samplemodel"
	"golang.org/x/exp/mmap"
)

type Format string

const (
	FormatWKT     Format = "wkt"
	FormatGeoJSON Format = "geojson"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatWKT, FormatGeoJSON:
		return f, nil
	case "", "text":
		return FormatWKT, nil
	case "json":
		return FormatGeoJSON, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", samplemodel.ErrInvalidArgument, s)
}

// ParseGeometry decodes a polygonal geometry from GeoJSON (a bare geometry, a
// Feature, or the first polygonal feature of a FeatureCollection) or WKT.
func ParseGeometry(data []byte) (orb.Geometry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", samplemodel.ErrInvalidArgument)
	}

	if data[0] != '{' {
		g, err := wkt.Unmarshal(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: error parsing wkt: %s", samplemodel.ErrInvalidArgument, err.Error())
		}
		return g, nil
	}

	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			if isPolygonal(f.Geometry) {
				return f.Geometry, nil
			}
		}
		return nil, fmt.Errorf("%w: feature collection has no polygonal feature", samplemodel.ErrInvalidArgument)
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing geojson: %s", samplemodel.ErrInvalidArgument, err.Error())
	}
	return g.Geometry(), nil
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

func MultiPointWKT(points []orb.Point) string {
	return wkt.MarshalString(orb.MultiPoint(points))
}

// FeatureCollection encodes every point as its own feature.
func FeatureCollection(points []orb.Point) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		fc.Append(geojson.NewFeature(p))
	}
	return fc.MarshalJSON()
}

// Encode renders points in the given output format.
func Encode(points []orb.Point, format Format) ([]byte, error) {
	switch format {
	case FormatWKT, "":
		return []byte(MultiPointWKT(points)), nil
	case FormatGeoJSON:
		return FeatureCollection(points)
	}
	return nil, fmt.Errorf("%w: unknown output format %q", samplemodel.ErrInvalidArgument, format)
}

// OpenReader opens a file, decompressing it on the fly when its name ends
// with .zst.
func OpenReader(name string) (io.ReadCloser, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open file error: %w", err)
	}

	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}

		return &zstdFile{ReadCloser: dec.IOReadCloser(), file: file}, nil
	}

	return file, nil
}

type zstdFile struct {
	io.ReadCloser
	file *os.File
}

func (z *zstdFile) Close() error {
	z.ReadCloser.Close()
	return z.file.Close()
}

// ReadFile returns the contents of a file. Plain files are read through a
// memory map, .zst files through the zstd decoder.
func ReadFile(name string) ([]byte, error) {
	if strings.HasSuffix(name, ".zst") {
		r, err := OpenReader(name)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	file, err := mmap.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open file error: %w", err)
	}
	defer file.Close()

	data := make([]byte, file.Len())
	if _, err := file.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return data, nil
}

func ReadGeometryFile(name string) (orb.Geometry, error) {
	data, err := ReadFile(name)
	if err != nil {
		return nil, err
	}
	g, err := ParseGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", name, err)
	}
	return g, nil
}
