package command

import (
	"context"

	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/infra"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type MigrateCommand struct {
	Logger *log.Logger
}

func (cmd MigrateCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "apply or roll back the postgres and clickhouse schemas",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(infra.Up), string(infra.Down)},
		Run: func(_ *cobra.Command, args []string) {
			cmd.main(cfg, ctx, infra.Direction(args[0]))
		},
	}
}

func (cmd MigrateCommand) main(cfg *config.Config, ctx context.Context, direction infra.Direction) {
	psql, err := infra.NewPostgresClient(ctx, cfg.Database.Postgres, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "migrate : failed to connect to postgresql"))
		return
	}
	defer psql.Close()

	clickhouse, err := infra.NewClickHouseClient(ctx, cfg.Database.ClickHouse, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "migrate : failed to connect to clickhouse"))
		return
	}
	defer clickhouse.Close()

	if err := psql.Migrate(direction); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	cmd.Logger.WithContext(ctx).Infof("migrate : postgres %s done", direction)

	if err := clickhouse.Migrate(direction); err != nil {
		cmd.Logger.WithContext(ctx).Fatal(err)
		return
	}
	cmd.Logger.WithContext(ctx).Infof("migrate : clickhouse %s done", direction)
}
