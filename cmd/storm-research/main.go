package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mikeboe/storm-research/pkg/config"
	"github.com/mikeboe/storm-research/pkg/llm"
	"github.com/mikeboe/storm-research/pkg/storm"
	"github.com/mikeboe/storm-research/pkg/storm/tools"
	"github.com/spf13/cobra"
)

var (
	topic       string
	maxAnalysts int
	turnLimit   int
	modelName   string
	outputFile  string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "storm-research",
		Short: "A terminal-based multi-perspective research agent",
		Long:  `storm-research generates a team of analyst personas for a topic, runs simulated expert interviews in parallel, and assembles the findings into a markdown report.`,
		Run: func(cmd *cobra.Command, args []string) {

			// Check if topic provided via flags
			topicFlagChanged := cmd.Flags().Changed("topic")

			if !topicFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
				if topic == "" {
					slog.Error("Topic cannot be empty")
					os.Exit(1)
				}
			} else {
				// Non-Interactive Mode (Flag provided)
				if topic == "" {
					slog.Error("--topic flag provided but empty")
					os.Exit(1)
				}
			}

			if modelName == "" {
				modelName = cfg.Model
			}
			if maxAnalysts == 0 {
				maxAnalysts = cfg.MaxAnalysts
			}
			if turnLimit == 0 {
				turnLimit = cfg.MaxInterviewTurns
			}

			slog.Info("Starting research", "topic", topic, "model", modelName, "analysts", maxAnalysts, "turns", turnLimit)

			generator, err := llm.New(modelName, cfg.LLMRequestsPerMin)
			if err != nil {
				slog.Error("Error initializing model", "error", err)
				os.Exit(1)
			}

			searchTools := tools.NewSearchTools(cfg.TavilyAPIKey, cfg.TavilyMaxResults, cfg.ArxivMaxDocs, slog.Default())

			workflow := storm.NewWorkflow(generator, searchTools, slog.Default())
			result, err := workflow.Run(context.Background(), storm.Options{
				Topic:       topic,
				MaxAnalysts: maxAnalysts,
				TurnLimit:   turnLimit,
			})
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			for _, failure := range result.Failures {
				slog.Warn("Interview dropped", "analyst", failure.Analyst.Name, "error", failure.Err)
			}

			filename := outputFile
			if filename == "" {
				filename = fmt.Sprintf("report_%d.md", time.Now().Unix())
			}
			if err := os.WriteFile(filename, []byte(result.Report), 0644); err != nil {
				slog.Error("Failed to write report", "error", err)
				os.Exit(1)
			}

			slog.Info("Research complete", "report", filename, "analysts", len(result.Analysts), "sections", len(result.Sections))
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().IntVarP(&maxAnalysts, "analysts", "a", 0, "Number of analyst personas (default from env)")
	rootCmd.Flags().IntVarP(&turnLimit, "turns", "n", 0, "Interview turn limit per analyst (default from env)")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model in provider/name form, e.g. openai/gpt-4o-mini")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Report output file (default report_<timestamp>.md)")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
