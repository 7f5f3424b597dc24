// Package devices lists the available audio capture devices.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varta-systems/varta-go/internal/audio"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := audio.ListCaptureDevices()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No capture devices found.")
				return nil
			}
			fmt.Println("Available capture devices:")
			for _, info := range infos {
				fmt.Printf("  [%d] %s\n", info.Index, info.Name)
			}
			return nil
		},
	}
}
