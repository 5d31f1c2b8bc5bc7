package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// zonesCommand creates the zones command and its subcommands.
func (c *CLI) zonesCommand() *cobra.Command {
	var (
		asJSON  bool
		tickers []string
	)

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Print the zone set as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, t := range tickers {
				tickers[i] = strings.ToUpper(strings.TrimSpace(t))
				if err := errors.ValidateTicker(tickers[i]); err != nil {
					return err
				}
			}
			cfg, err := c.validConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := c.openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer source.Close(src)

			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			zones, err := runner.Load(ctx, src)
			if err != nil {
				return err
			}
			zones = filterTickers(zones, tickers)
			if asJSON {
				return zone.WriteJSON(zones, cmd.OutOrStdout())
			}
			printZones(cmd.OutOrStdout(), zones, cfg.Palette)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the normalized zone records as JSON")
	cmd.Flags().StringSliceVarP(&tickers, "ticker", "t", nil, "only zones of these tickers")
	cmd.AddCommand(c.zonesShowCommand())
	cmd.AddCommand(c.zonesFlagCommand())
	return cmd
}

func (c *CLI) zonesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one zone with its score history and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseZoneID(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.validConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := c.openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer source.Close(src)

			d, ok := src.(source.Detailer)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "%s has no zone details", src.Name())
			}
			detail, err := d.Detail(ctx, id)
			if err != nil {
				return err
			}

			m := ViewModel{src: src, scale: cfg.Palette, detail: &detail}
			cmd.Println(m.detailView())
			return nil
		},
	}
}

func (c *CLI) zonesFlagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flag <id>",
		Short: "Toggle a zone's flag at the source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseZoneID(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.validConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := c.openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer source.Close(src)

			f, ok := src.(source.Flagger)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "%s cannot toggle flags", src.Name())
			}
			flagged, err := f.ToggleFlag(ctx, id)
			if err != nil {
				return err
			}
			if flagged {
				printSuccess("Flagged zone %d", id)
			} else {
				printSuccess("Cleared the flag of zone %d", id)
			}
			return nil
		},
	}
}

// filterTickers keeps the zones whose ticker is in tickers, ignoring case.
// An empty list keeps everything.
func filterTickers(zones []zone.Zone, tickers []string) []zone.Zone {
	if len(tickers) == 0 {
		return zones
	}
	var out []zone.Zone
	for _, z := range zones {
		for _, t := range tickers {
			if strings.EqualFold(z.Ticker, t) {
				out = append(out, z)
				break
			}
		}
	}
	return out
}

func parseZoneID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid zone id %q", s)
	}
	return id, nil
}
