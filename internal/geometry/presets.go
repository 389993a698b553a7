// Package geometry holds a small embedded table of named FAT32 disk
// geometries, used by test fixture construction and by cmd/fat32sh's
// -preset flag so callers don't have to spell out boot-sector fields by
// hand. This mirrors disks/disks.go's embedded-CSV-of-geometries
// pattern, narrowed to the fields a FAT32 boot sector actually needs.
package geometry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Preset is one named FAT32 geometry: everything needed to synthesize a
// boot sector for a fresh image, restricted to the subset a formatter
// chooses rather than derives.
type Preset struct {
	Name                string `csv:"name"`
	BytesPerSector      uint16 `csv:"bytes_per_sector"`
	SectorsPerCluster   uint8  `csv:"sectors_per_cluster"`
	ReservedSectorCount uint16 `csv:"reserved_sectors"`
	NumFATs             uint8  `csv:"num_fats"`
	TotalSectors32      uint32 `csv:"total_sectors"`
	FATSize32           uint32 `csv:"fat_size_sectors"`
	RootCluster         uint32 `csv:"root_cluster"`
}

//go:embed presets.csv
var rawPresetsCSV string

var presets map[string]Preset

func init() {
	presets = make(map[string]Preset)
	reader := strings.NewReader(rawPresetsCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Preset) error {
		if _, exists := presets[row.Name]; exists {
			return fmt.Errorf("duplicate geometry preset %q", row.Name)
		}
		presets[row.Name] = row
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("geometry: malformed embedded presets.csv: %v", err))
	}
}

// Get looks up a preset by name.
func Get(name string) (Preset, error) {
	preset, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("no predefined FAT32 geometry preset named %q", name)
	}
	return preset, nil
}

// Names returns every preset name, for help text / flag validation.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
