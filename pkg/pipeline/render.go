package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/render/sink"
	"github.com/matzehuels/zonemap/pkg/viewport"
)

// maxParallelRenders bounds concurrent sink work; PDF shells out and PNG
// rasterizes, both of which are heavy.
const maxParallelRenders = 4

// Render writes s in every requested format. Formats render concurrently;
// the first failure cancels the rest.
func Render(ctx context.Context, s *viewport.Scene, opts Options) (map[sink.Format][]byte, error) {
	opts.SetRenderDefaults()
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return renderFormats(ctx, s, opts.Formats, opts.SinkOptions())
}

func renderFormats(ctx context.Context, s *viewport.Scene, formats []sink.Format, so sink.Options) (map[sink.Format][]byte, error) {
	var (
		mu  sync.Mutex
		out = make(map[sink.Format][]byte, len(formats))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRenders)
	for _, f := range formats {
		g.Go(func() error {
			data, err := sink.Render(gctx, s, f, so)
			if err != nil {
				if errors.GetCode(err) != "" {
					return err
				}
				return errors.Wrap(errors.ErrCodeInternal, err, "render %s", f)
			}
			mu.Lock()
			out[f] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
