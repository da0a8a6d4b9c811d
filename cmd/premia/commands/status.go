package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and snapshot coverage",
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	session := a.clock.Session(now)

	fmt.Println("Session")
	fmt.Printf("   Date:        %s\n", session.Date.Format("2006-01-02"))
	fmt.Printf("   Mode:        %s\n", session.CurrentMode)
	fmt.Printf("   Trading day: %v\n", session.IsTradingDay)
	fmt.Printf("   Lock time:   %s\n", session.LockTimestamp.Format("2006-01-02 15:04:05 MST"))

	date, err := resolveDate(a, "")
	if err != nil {
		return err
	}

	count, err := a.contract.SnapshotCount(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("snapshot count: %w", err)
	}

	fmt.Println("\nSnapshots")
	fmt.Printf("   Finalized today: %d\n", count)

	if version, err := a.builder.Latest(cmd.Context()); err == nil {
		fmt.Printf("   Universe size:   %d (version %d)\n", len(version.Symbols), version.VersionID)
	}

	health, err := a.db.HealthCheck(cmd.Context())
	if err != nil {
		fmt.Printf("\nDatabase: unhealthy (%v)\n", err)
		return nil
	}

	fmt.Println("\nDatabase")
	fmt.Printf("   Healthy: %v\n", health.Healthy)
	fmt.Printf("   Latency: %s\n", health.ResponseTime)
	fmt.Printf("   Conns:   %d/%d\n", health.Stats.TotalConns, health.Stats.MaxConns)

	return nil
}
