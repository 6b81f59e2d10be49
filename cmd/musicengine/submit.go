package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/makeasinger/musicengine/internal/ledger"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/service"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <spec.json>",
		Short: "Queue a music spec read from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spec: %w", err)
			}
			var spec model.MusicSpec
			if err := json.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("decode spec: %w", err)
			}

			redisClient := newRedisClient(cfg)
			defer redisClient.Close()

			producer, closeProducer := newProducer(cfg, redisClient)
			defer closeProducer()

			tracker := ledger.NewTracker(ledger.NewRedisLedger(redisClient, cfg.Ledger.TTL), nil, logger)
			svc := service.NewJobService(tracker, producer, validator.New(), nil)

			resp, err := svc.Submit(cmd.Context(), "", spec)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
}
