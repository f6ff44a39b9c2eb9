package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/store"
)

var botsCmd = &cobra.Command{
	Use:   "bots",
	Short: "Manage the bot registry used by the dashboard",
}

var botsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered bots",
	Args:  cobra.NoArgs,
	RunE:  listBots,
}

var newBot store.Bot
var newBotConfig string

var botsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a bot",
	Example: `  botlolicute bots add --name farm --username Loli --server mc.example.net
  botlolicute bots add --name guard --username Guard --server localhost --config configs/guard.yaml`,
	Args: cobra.NoArgs,
	RunE: addBot,
}

var botsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a bot from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  removeBot,
}

func init() {
	f := botsAddCmd.Flags()
	f.StringVar(&newBot.Name, "name", "", "bot name (unique)")
	f.StringVar(&newBot.Username, "username", "", "in-game username")
	f.StringVar(&newBot.Server, "server", "localhost", "server host")
	f.IntVar(&newBot.Port, "port", 25565, "server port")
	f.StringVar(&newBot.Version, "version", "1.20.2", "game version")
	f.StringVar(&newBotConfig, "config", "", "YAML bot config file")

	botsCmd.AddCommand(botsListCmd, botsAddCmd, botsRmCmd)
}

func listBots(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	bots, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	printBots(cmd.OutOrStdout(), bots)
	return nil
}

func printBots(w io.Writer, bots []store.Bot) {
	if len(bots) == 0 {
		fmt.Fprintln(w, "no bots registered")
		return
	}
	t := table.New("ID", "Name", "Username", "Server", "Status", "Last seen", "Created").WithWriter(w)
	for _, b := range bots {
		seen := "never"
		if b.LastSeen != nil {
			seen = humanize.Time(*b.LastSeen)
		}
		t.AddRow(b.ID, b.Name, b.Username, fmt.Sprintf("%s:%d", b.Server, b.Port), b.Status, seen, humanize.Time(b.CreatedAt))
	}
	t.Print()
}

func addBot(cmd *cobra.Command, args []string) error {
	rec := newBot
	if newBotConfig != "" {
		data, err := os.ReadFile(newBotConfig)
		if err != nil {
			return err
		}
		if _, err := bot.ParseConfig(data); err != nil {
			return fmt.Errorf("%s: %w", newBotConfig, err)
		}
		rec.Config = string(data)
	}

	st, err := store.Open(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Create(cmd.Context(), &rec); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", rec.Name, rec.ID)
	return nil
}

func removeBot(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}
