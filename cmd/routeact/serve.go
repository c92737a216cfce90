package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/routeact/routeact/toolservice"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host one tool service over stdio",
	}
	cmd.AddCommand(newServeWeatherCmd(), newServeMathCmd(), newServeSQLiteCmd())
	return cmd
}

func newServeWeatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weather",
		Short: "Serve the get_weather tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(envFile)
			apiKey := os.Getenv("OPENWEATHER_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("OPENWEATHER_API_KEY is not set")
			}
			s := &toolservice.WeatherServer{APIKey: apiKey}
			return s.Run(cmd.Context())
		},
	}
}

func newServeMathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "math",
		Short: "Serve the add and multiply tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &toolservice.MathServer{}
			return s.Run(cmd.Context())
		},
	}
}

func newServeSQLiteCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "sqlite",
		Short: "Serve the database tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &toolservice.SQLiteServer{Path: dbPath}
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dbPath, "db-path", "travel.sqlite", "path to the SQLite database file")
	return cmd
}
