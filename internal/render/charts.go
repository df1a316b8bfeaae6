package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/riklinssen/lm-sampling/internal/model"
)

// RenderCharts writes an interactive HTML page with a population bar chart
// per sampled cluster and a scatter of cluster centroids by replicate.
func RenderCharts(layers Layers, path string) error {
	page := components.NewPage()
	page.PageTitle = "Sampling overview"

	page.AddCharts(populationBar(layers.Clusters), clusterScatter(layers.Clusters))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "render: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return eris.Wrapf(err, "render: render charts %s", path)
	}
	return nil
}

func populationBar(clusters []model.SampledCluster) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Population by sampled cluster",
			Subtitle: "main and replacement replicates",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	var labels []string
	var main, replacement []opts.BarData
	for _, c := range clusters {
		labels = append(labels, fmt.Sprintf("cell %d", c.ID))
		if c.Type == model.ClusterMain {
			main = append(main, opts.BarData{Value: c.Population})
			replacement = append(replacement, opts.BarData{Value: nil})
		} else {
			main = append(main, opts.BarData{Value: nil})
			replacement = append(replacement, opts.BarData{Value: c.Population})
		}
	}
	bar.SetXAxis(labels).
		AddSeries("main", main).
		AddSeries("replacement", replacement)
	return bar
}

func clusterScatter(clusters []model.SampledCluster) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cluster centroids"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Scale: opts.Bool(true)}),
	)

	var main, replacement []opts.ScatterData
	for _, c := range clusters {
		d := opts.ScatterData{Value: []any{c.CentroidLon, c.CentroidLat, c.Population}}
		if c.Type == model.ClusterMain {
			main = append(main, d)
		} else {
			replacement = append(replacement, d)
		}
	}
	scatter.AddSeries("main", main)
	scatter.AddSeries("replacement", replacement)
	return scatter
}
