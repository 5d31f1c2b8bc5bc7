package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/zonemap/pkg/refresh"
	"github.com/matzehuels/zonemap/pkg/source"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

// viewCommand creates the view command: the treemap in the terminal.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		logFile string
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse the treemap in the terminal",
		Long: `View draws the treemap in the terminal and follows its size. Click a cell
to open the zone's detail, click a flag to toggle it, press tab to switch
to the list view.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.validConfig()
			if err != nil {
				return err
			}

			// The program owns the screen; logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := tea.LogToFile(logFile, appName)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			c.Logger.SetOutput(logOut)
			defer c.Logger.SetOutput(os.Stderr)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			src, err := c.openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer source.Close(src)

			initial := viewport.ViewTreemap
			if list {
				initial = viewport.ViewList
			}
			model := NewViewModel(ctx, src, viewport.Options{
				Padding:  cfg.Padding(),
				Renderer: cfg.Renderer(),
				Debounce: cfg.Viewport.Debounce.Duration,
				View:     initial,
				Logger:   c.Logger,
			})
			model.view = initial
			defer model.Controller().Close()

			r := refresh.New(src, model.Refresh, c.Logger)
			if cfg.Refresh.Schedule != "" {
				p, err := refresh.NewPoller(r, cfg.Refresh.Schedule, refresh.DefaultTimeout)
				if err != nil {
					return err
				}
				p.Start()
				defer p.Stop()
			}
			if cfg.Refresh.Watch && cfg.Source.Kind == source.KindFile {
				w, err := refresh.NewWatcher(r, cfg.Source.Path)
				if err != nil {
					return err
				}
				go w.Run(ctx)
			}

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
			_, err = p.Run()
			if stderrors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the view runs")
	cmd.Flags().BoolVar(&list, "list", false, "start in the list view")
	return cmd
}
