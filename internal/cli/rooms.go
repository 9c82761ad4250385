package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fodinha-client/internal/textutil"
)

// RoomListing is one row of the lobby endpoint's response.
type RoomListing struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// NewRoomsCommand creates the rooms command. The lobby is a plain HTTP
// collaborator of presentation; it never touches the engine.
func NewRoomsCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:           "rooms",
		Short:         "List open rooms on the server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.Config()
			if err != nil {
				return err
			}
			rooms, err := fetchRooms(cmd.Context(), cfg.LobbyURL)
			if err != nil {
				return err
			}
			rooms = filterRooms(rooms, filter)
			out := cmd.OutOrStdout()
			if len(rooms) == 0 {
				fmt.Fprintln(out, "no open rooms")
				return nil
			}
			fmt.Fprintf(out, "%-12s %-20s %-8s %s\n", "ID", "NAME", "PLAYERS", "PHASE")
			for _, r := range rooms {
				fmt.Fprintf(out, "%-12s %-20s %-8d %s\n", r.ID, r.Name, r.Players, r.Phase)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only list rooms whose name matches (case and accent insensitive)")
	return cmd
}

// filterRooms keeps listings whose folded name contains the folded filter.
// "joao" matches "Mesa do João".
func filterRooms(rooms []RoomListing, filter string) []RoomListing {
	if filter == "" {
		return rooms
	}
	want := textutil.Fold(filter)
	out := rooms[:0]
	for _, r := range rooms {
		if strings.Contains(textutil.Fold(r.Name), want) {
			out = append(out, r)
		}
	}
	return out
}

func fetchRooms(ctx context.Context, lobbyURL string) ([]RoomListing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lobbyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build lobby request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lobby returned %s", resp.Status)
	}
	var rooms []RoomListing
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode lobby response: %w", err)
	}
	return rooms, nil
}
