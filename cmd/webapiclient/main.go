// Command webapiclient calls every carbon-aware Web API operation against the
// service at the given base URL and prints the results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"carbonaware/internal/api"
	"carbonaware/internal/logger"
	"carbonaware/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sampleLocations = []string{"westus", "centralus", "eastus"}

const (
	singleLocation = "westus"
	forecastWindow = 10 // minutes
)

func main() {
	log.Logger = logger.New("webapiclient", os.Stderr, true)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("webapiclient failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		timeout time.Duration
		debug   bool
	)

	cmd := &cobra.Command{
		Use:           "webapiclient <base-url>",
		Short:         "Call each carbon-aware Web API operation and print the results",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []api.Option{api.WithDebugLogging(debug)}
			if timeout > 0 {
				opts = append(opts, api.WithHTTPTimeout(timeout))
			}

			client, err := api.New(args[0], opts...)
			if err != nil {
				return err
			}
			return run(cmd.Context(), client, cmd.OutOrStdout(), time.Now())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP timeout per request (0 keeps the transport default)")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every request and response")
	return cmd
}

// section is one labeled block of output
type section struct {
	path  string
	fetch func(ctx context.Context) ([]interface{}, error)
}

// run prints every section in order and stops at the first failure.
func run(ctx context.Context, client *api.Client, out io.Writer, now time.Time) error {
	for _, s := range sections(client, now) {
		fmt.Fprintf(out, "--- %s ---\n", s.path)

		items, err := s.fetch(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", s.path, err)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "no data")
		}
		for _, item := range items {
			if err := printItem(out, item); err != nil {
				return err
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func sections(client *api.Client, now time.Time) []section {
	dayStart, dayEnd := yesterday(now)

	return []section{
		{
			path: "/emissions/bylocations/best",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				data, err := client.BestEmissionsByLocations(ctx, sampleLocations, dayStart, dayEnd)
				return all(data), err
			},
		},
		{
			path: "/emissions/bylocations",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				data, err := client.EmissionsByLocations(ctx, sampleLocations, dayStart, dayEnd)
				return first(data), err
			},
		},
		{
			path: "/emissions/bylocation",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				data, err := client.EmissionsByLocation(ctx, singleLocation, dayStart, dayEnd)
				return first(data), err
			},
		},
		{
			path: "/emissions/forecasts/current",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				start := now.Truncate(time.Minute).Add(time.Hour)
				data, err := client.CurrentForecast(ctx, []string{singleLocation}, start, start.Add(time.Hour), forecastWindow)
				return first(data), err
			},
		},
		{
			path: "/emissions/forecasts/batch",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				requested := now.Truncate(time.Second)
				start := requested.Add(10 * time.Minute)
				data, err := client.ForecastBatch(ctx, []models.ForecastBatchParameters{{
					RequestedAt: requested,
					Location:    singleLocation,
					DataStartAt: start,
					DataEndAt:   start.Add(10 * time.Minute),
				}})
				return first(data), err
			},
		},
		{
			path: "/emissions/average-carbon-intensity",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				intensity, err := client.AverageCarbonIntensity(ctx, singleLocation, dayStart, dayEnd)
				if err != nil {
					return nil, err
				}
				return []interface{}{intensity}, nil
			},
		},
		{
			path: "/emissions/average-carbon-intensity/batch",
			fetch: func(ctx context.Context) ([]interface{}, error) {
				data, err := client.AverageCarbonIntensityBatch(ctx, []models.IntensityBatchParameters{{
					Location:  singleLocation,
					StartTime: dayStart,
					EndTime:   dayEnd,
				}})
				return all(data), err
			},
		},
	}
}

// yesterday spans local midnight one day back to 23:59:59 of that day.
func yesterday(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m, d-1, 23, 59, 59, 0, now.Location())
	return start, end
}

func all[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i := range items {
		out[i] = items[i]
	}
	return out
}

func first[T any](items []T) []interface{} {
	if len(items) == 0 {
		return nil
	}
	return []interface{}{items[0]}
}

func printItem(out io.Writer, item interface{}) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
