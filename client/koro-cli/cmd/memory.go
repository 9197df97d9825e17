package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect facts Koro remembers about you",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered facts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Synapses []synapse `json:"synapses"`
		}
		if err := callAPI(cmd.Context(), http.MethodGet, "/memory", nil, &resp); err != nil {
			return err
		}
		if len(resp.Synapses) == 0 {
			fmt.Println("No memories stored.")
			return nil
		}
		for _, s := range resp.Synapses {
			fmt.Printf("%s  [%d] %s  (%s)\n", s.ID, s.Importance, s.Fact, time.UnixMilli(s.Timestamp).Format("2006-01-02"))
		}
		return nil
	},
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget [memory-id]",
	Short: "Forget one fact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAPI(cmd.Context(), http.MethodDelete, "/memory/"+args[0], nil, nil)
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := callAPI(cmd.Context(), http.MethodDelete, "/memory", nil, nil); err != nil {
			return err
		}
		fmt.Println("Memory cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryListCmd, memoryForgetCmd, memoryClearCmd)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
