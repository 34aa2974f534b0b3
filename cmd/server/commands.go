package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/service"
	"github.com/spf13/cobra"
)

var (
	initUsername string
	initPassword string

	importDryRun         bool
	importTestConnection bool

	rollupDate string
)

func init() {
	initUserCmd.Flags().StringVar(&initUsername, "username", "admin", "Admin username")
	initUserCmd.Flags().StringVar(&initPassword, "password", "", "Admin password (required)")

	importHotspotsCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Report what would be imported without writing")
	importHotspotsCmd.Flags().BoolVar(&importTestConnection, "test-connection", false, "Check the login page of every imported hotspot")

	rollupCmd.Flags().StringVar(&rollupDate, "date", "", "Day to rebuild as YYYY-MM-DD (default today)")
}

var initUserCmd = &cobra.Command{
	Use:   "init-user",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initPassword == "" {
			return errors.New("--password is required")
		}
		gdb, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		created, err := db.EnsureUser(gdb, initUsername, initPassword)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if !created {
			fmt.Printf("User %q already exists\n", initUsername)
			return nil
		}
		fmt.Printf("Created admin user %q\n", initUsername)
		return nil
	},
}

var importHotspotsCmd = &cobra.Command{
	Use:   "import-hotspots",
	Short: "Register hotspot* folders found under hotspot.root_dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		hotspots := service.NewHotspotService(gdb, cfg.Hotspot.RootDir, nil)
		report, err := hotspots.ImportFromFolders(cmd.Context(), importDryRun, importTestConnection)
		if err != nil {
			return err
		}

		fmt.Printf("Found %d hotspot folders in %s\n", len(report.Found), cfg.Hotspot.RootDir)
		for _, h := range report.Imported {
			line := fmt.Sprintf("  + %s (%s)", h.HotspotName, h.DisplayName)
			if importTestConnection && !importDryRun {
				line += " status=" + h.Status
			}
			fmt.Println(line)
		}
		for _, name := range report.Skipped {
			fmt.Printf("  = %s already registered\n", name)
		}
		if importDryRun {
			fmt.Println("Dry run: nothing was written")
		}
		return nil
	},
}

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Rebuild the daily reach rows of one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		day := service.DayWindow(time.Now(), loc)
		if rollupDate != "" {
			if day, err = service.ParseDay(rollupDate, loc); err != nil {
				return err
			}
		}

		gdb, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		rows, err := service.NewRollupService(gdb, loc).Rollup(cmd.Context(), day)
		if err != nil {
			return err
		}
		log.Info("daily reach rollup", "day", day.Start.Format("2006-01-02"), "rows", len(rows))
		for _, row := range rows {
			fmt.Printf("%s %-30s impressions=%d devices=%d\n", row.Day, row.HotspotName, row.TotalImpressions, row.UniqueDevices)
		}
		return nil
	},
}
