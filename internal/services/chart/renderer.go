package chart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	"BreadthPull/pkg/logger"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Renderer draws every indicator of a report as a PNG line chart.
type Renderer struct {
	dir    string
	tail   int
	width  vg.Length
	height vg.Length
	log    *logger.Logger
}

var _ drepo.ReportSink = (*Renderer)(nil)

// NewRenderer creates a renderer writing into dir. Charts show the last tail
// points and measure width x height inches.
func NewRenderer(dir string, tail, width, height int, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Nop()
	}
	return &Renderer{
		dir:    dir,
		tail:   tail,
		width:  vg.Length(width) * vg.Inch,
		height: vg.Length(height) * vg.Inch,
		log:    log,
	}
}

func (r *Renderer) Name() string { return "charts" }

// Publish writes one chart per indicator, named after the composite.
func (r *Renderer) Publish(ctx context.Context, report *models.Report) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}

	var errs []error
	for _, ind := range report.Indicators {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := r.Path(ind.Name)
		p, err := r.Plot(ind)
		if err == nil {
			err = p.Save(r.width, r.height, path)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("chart %s: %w", ind.Name, err))
			continue
		}
		r.log.Debug("chart written", logger.String("indicator", string(ind.Name)), logger.String("path", path))
	}
	return errors.Join(errs...)
}

// Path returns the file a composite's chart is written to.
func (r *Renderer) Path(c models.Composite) string {
	return filepath.Join(r.dir, strings.ToLower(string(c))+".png")
}

// Plot builds the chart of one indicator: the raw series and both moving averages.
func (r *Renderer) Plot(ind models.Indicator) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", ind.Title, ind.Label)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = string(ind.Name)
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	lines := []struct {
		name   string
		series models.TimeSeries
	}{
		{string(ind.Name), ind.Series},
		{fmt.Sprintf("SMA %d", ind.ShortWindow), ind.ShortSMA},
		{fmt.Sprintf("SMA %d", ind.LongWindow), ind.LongSMA},
	}
	for i, l := range lines {
		pts := xys(l.series.Tail(r.tail))
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", l.name, err)
		}
		line.Color = plotutil.Color(i % len(plotutil.DefaultColors))
		if i > 0 {
			line.Dashes = plotutil.Dashes(i)
		}
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	return p, nil
}

func xys(s models.TimeSeries) plotter.XYs {
	points := s.Points()
	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X = float64(pt.Date.Unix())
		pts[i].Y = pt.Value
	}
	return pts
}
