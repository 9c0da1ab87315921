// Command growthfit fits the continuous-time and/or discrete-time growth
// models to a wide-format panel CSV and prints the estimates. With -plot it
// also renders the observations and the fitted mean trajectory.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	growthfit "github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/dataset"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/fit"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

func main() {
	var (
		input    = flag.String("input", "", "wide-format panel CSV (id, y1..yT, a1..aT)")
		model    = flag.String("model", "ct", "model to fit: ct, dt or both")
		missing  = flag.String("missing", "NA", "missing-value marker")
		maxIter  = flag.Int("maxiter", 200, "iteration budget")
		plotFile = flag.String("plot", "", "write observed points and fitted CT trajectory to this PNG")
		verbose  = flag.Bool("v", false, "log fit diagnostics")
	)
	flag.Parse()
	logger := log.New(os.Stderr, "growthfit: ", 0)
	if *input == "" {
		logger.Fatal("missing -input")
	}

	f, err := os.Open(*input)
	if err != nil {
		logger.Fatal(err)
	}
	table, err := dataset.ReadWide(f, dataset.Options{Missing: *missing, AllowEmpty: true})
	f.Close()
	if err != nil {
		logger.Fatal(err)
	}

	cfg := fit.Config{MaxIterations: *maxIter}
	if *verbose {
		cfg.Logger = logger
	}

	if *model == "ct" || *model == "both" {
		res, err := growthfit.Continuous(table, cfg)
		if res == nil {
			logger.Fatal(err)
		}
		report("continuous-time state space", res.Result, err, logger)
		if *plotFile != "" {
			if perr := plotTrajectory(*plotFile, table, res); perr != nil {
				logger.Fatal(perr)
			}
		}
	}
	if *model == "dt" || *model == "both" {
		res, err := growthfit.ChangeScore(table, cfg)
		if res == nil {
			logger.Fatal(err)
		}
		report("discrete-time dual change score", res, err, logger)
	}
}

func report(name string, res *fit.Result, err error, logger *log.Logger) {
	fmt.Printf("%s model\n", name)
	if err != nil {
		logger.Printf("fit did not converge: %v", err)
	}
	fmt.Printf("  -2 log-likelihood / 2: %.4f (converged=%v, iterations=%d, penalized=%d)\n",
		res.NegLogLikelihood, res.Converged, res.MajorIterations, res.DegenerateEvals)
	for i, p := range res.Parameters {
		se := "-"
		if res.StdErrors != nil {
			se = fmt.Sprintf("%.4f", res.StdErrors[i])
		}
		note := ""
		if res.AtBound[i] {
			note = "  (at bound)"
		}
		fmt.Printf("  %-14s %10.4f  se %s%s\n", p.Name, p.Value, se, note)
	}
}

// plotTrajectory renders every observation as a point over age together with
// the fitted population mean trajectory C e^(A t) x0.
func plotTrajectory(file string, table *dataset.Table, res *growthfit.ContinuousResult) error {
	series, _, err := table.Series()
	if err != nil {
		return err
	}
	var pts plotter.XYs
	tMax := 0.0
	for _, s := range series {
		for _, o := range s {
			pts = append(pts, plotter.XY{X: o.Time, Y: o.Value})
			tMax = math.Max(tMax, o.Time)
		}
	}

	model, err := ssm.NewGrowthModel().Evaluate(res.Theta)
	if err != nil {
		return err
	}
	curve := make(plotter.XYs, 0, 101)
	var mean mat.VecDense
	for i := 0; i <= 100; i++ {
		t := tMax * float64(i) / 100
		phi, _, err := ssm.Discretize(model.A, model.Q, t)
		if err != nil {
			return err
		}
		mean.MulVec(phi, model.X0)
		var y mat.VecDense
		y.MulVec(model.C, &mean)
		curve = append(curve, plotter.XY{X: t, Y: y.AtVec(0)})
	}

	p := plot.New()
	p.Title.Text = "Observed values and fitted mean trajectory"
	p.X.Label.Text = "age"
	p.Y.Label.Text = "score"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return err
	}
	p.Add(scatter, line)
	p.Legend.Add("observed", scatter)
	p.Legend.Add("fitted mean", line)
	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
