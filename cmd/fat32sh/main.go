// Command fat32sh is a thin, non-interactive entrypoint over the
// volume engine: it can format a fresh image from a named geometry
// preset and print a mounted image's info. The interactive shell
// (tokenizer, prompt, cmd_<verb> dispatch) is out of scope for this
// repository; this is the collaborator a real shell would sit behind.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ardalis-fat/fat32vol/internal/geometry"
	"github.com/ardalis-fat/fat32vol/internal/testimage"
	"github.com/ardalis-fat/fat32vol/volume"
)

func main() {
	app := &cli.App{
		Usage: "Create and inspect FAT32 volume images",
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "Create a fresh FAT32 image from a named geometry preset",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image", Required: true, Usage: "path of the image file to create"},
					&cli.StringFlag{Name: "preset", Required: true, Usage: "geometry preset name (" + strings.Join(geometry.Names(), ", ") + ")"},
				},
				Action: formatImage,
			},
			{
				Name:  "info",
				Usage: "Mount an existing image and print its geometry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image", Required: true},
				},
				Action: showInfo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fat32sh: %s\n", err)
		os.Exit(1)
	}
}

func formatImage(c *cli.Context) error {
	preset, err := geometry.Get(c.String("preset"))
	if err != nil {
		return err
	}
	raw := testimage.Build(preset)
	return os.WriteFile(c.String("image"), raw, 0644)
}

func showInfo(c *cli.Context) error {
	v, err := volume.Mount(c.String("image"))
	if err != nil {
		return err
	}
	defer v.Unmount()

	info := v.Info()
	fmt.Printf("image: %s\n", v.ImageName())
	fmt.Printf("root cluster: %d\n", info.RootCluster)
	fmt.Printf("bytes/sector: %d\n", info.BytesPerSector)
	fmt.Printf("sectors/cluster: %d\n", info.SectorsPerCluster)
	fmt.Printf("data clusters: %d\n", info.TotalDataClusters)
	fmt.Printf("FAT entries/FAT: %d\n", info.FATEntriesPerFAT)
	fmt.Printf("image size: %d bytes\n", info.ImageSizeBytes)
	return nil
}
