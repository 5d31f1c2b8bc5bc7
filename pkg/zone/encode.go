package zone

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// WriteJSON writes zones as an indented JSON array that [Decode] reads back.
func WriteJSON(zones []Zone, w io.Writer) error {
	if zones == nil {
		zones = []Zone{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(zones); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes zones to a file at path, replacing it if it exists.
func ExportJSON(zones []Zone, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(zones, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
