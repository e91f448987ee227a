/*

Electlogit fits a Bayesian logistic regression of the 2020 US
presidential election state winners on demographic and COVID-19
predictors. The model is evaluated with k-fold cross-validation and
the evaluation can be repeated for several prior variances.

Cross-validation with the default 10 folds and prior variance 5:

	electlogit cv counties.csv

Sensitivity analysis over prior variances 2.5, 5 and 7.5 with density
plots:

	electlogit sweep --plot plots counties.xlsx

Posterior of the full data:

	electlogit fit --predictors White --predictors Income counties.csv

To see all the options run:

	electlogit --help

*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("electlogit")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are all the logging modules.
var modules = []string{"electlogit", "optimize", "logit", "mcmc", "cv", "sweep", "dataset", "checkpoint", "report"}

const dataHelp = "county or state level CSV or XLSX file"

// setBy returns a flag action which records that the flag was set.
func setBy(set *bool) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		*set = true
		return nil
	}
}

// command-line options
var (
	// application
	app = kingpin.New("electlogit", "Bayesian logistic regression of state election winners").Version(version)

	cvCmd    = app.Command("cv", "cross-validate the model")
	sweepCmd = app.Command("sweep", "cross-validate for several prior variances and compare")
	fitCmd   = app.Command("fit", "sample the posterior given all the states")

	// input
	cvData    = cvCmd.Arg("data", dataHelp).Required().ExistingFile()
	sweepData = sweepCmd.Arg("data", dataHelp).Required().ExistingFile()
	fitData   = fitCmd.Arg("data", dataHelp).Required().ExistingFile()
	configF   = app.Flag("config", "YAML configuration file").ExistingFile()

	// model
	predictorsSet bool
	predictors    = app.Flag("predictors", "predictor name (repeatable)").Action(setBy(&predictorsSet)).Strings()
	rawSet        bool
	raw           = app.Flag("raw", "do not standardize predictors").Action(setBy(&rawSet)).Bool()
	varianceSet   bool
	variance      = app.Flag("variance", "prior variance for cv and fit").Action(setBy(&varianceSet)).Float64()
	variancesSet  bool
	variances     = app.Flag("variances", "prior variance for sweep (repeatable)").Action(setBy(&variancesSet)).Float64List()
	foldsSet      bool
	folds         = app.Flag("folds", "number of consecutive folds").Action(setBy(&foldsSet)).Int()

	// sampler
	chainsSet    bool
	chains       = app.Flag("chains", "number of chains").Action(setBy(&chainsSet)).Int()
	warmupSet    bool
	warmup       = app.Flag("warmup", "number of warmup iterations").Action(setBy(&warmupSet)).Int()
	iterSet      bool
	iterations   = app.Flag("iter", "number of recorded iterations per chain").Action(setBy(&iterSet)).Int()
	adaptiveSet  bool
	adaptive     = app.Flag("adaptive", "use adaptive proposals during warmup").Action(setBy(&adaptiveSet)).Bool()
	mapSet       bool
	mapStart     = app.Flag("map", "start chains around the posterior mode").Action(setBy(&mapSet)).Bool()
	reportPeriod = app.Flag("report", "report every N iterations").Default("100").Int()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	seedSet    bool
	seed       = app.Flag("seed", "random generator seed, default time based").Action(setBy(&seedSet)).Int64()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()
	cpF        = app.Flag("checkpoint", "checkpoint database for finished folds").String()

	// output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("trajectory", "write sampler trajectory to a file").String()
	plotDir  = app.Flag("plot", "write posterior density plots to a directory").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// applyFlags overrides the configuration with explicitly set flags.
func applyFlags(cfg *Config) {
	if predictorsSet {
		cfg.Predictors = *predictors
	}
	if rawSet {
		cfg.Standardize = !*raw
	}
	if varianceSet {
		cfg.Variance = *variance
		cfg.Prior = nil
	}
	if variancesSet {
		cfg.Variances = *variances
	}
	if foldsSet {
		cfg.Folds = FoldConfig{K: *folds}
	}
	if chainsSet {
		cfg.Sampler.Chains = *chains
	}
	if warmupSet {
		cfg.Sampler.Warmup = *warmup
	}
	if iterSet {
		cfg.Sampler.Draws = *iterations
	}
	if adaptiveSet {
		cfg.Sampler.Adaptive = *adaptive
	}
	if mapSet {
		cfg.Sampler.MAP = *mapStart
	}
	if seedSet {
		cfg.Sampler.Seed = *seed
	}
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	startTime := time.Now()

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	cfg, err := readConfig(*configF)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg)

	if cfg.Sampler.Seed == -1 {
		cfg.Sampler.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", cfg.Sampler.Seed)

	runtime.GOMAXPROCS(*nThreads)

	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.", effectiveNThreads)
	if cfg.Sampler.Threads == 0 {
		cfg.Sampler.Threads = effectiveNThreads
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *outF != "" {
		f, err := os.Create(*outF)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer f.Close()
		cfg.Sampler.Trajectory = f
		cfg.Sampler.ReportPeriod = *reportPeriod
	}

	var dataFileName string
	switch cmd {
	case cvCmd.FullCommand():
		dataFileName = *cvData
	case sweepCmd.FullCommand():
		dataFileName = *sweepData
	case fitCmd.FullCommand():
		dataFileName = *fitData
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAnalysis(cfg, dataFileName)
	if err != nil {
		log.Fatal(err)
	}
	if *cpF != "" {
		if err := a.openCheckpoint(*cpF); err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer a.db.Close()
	}

	var summary *Summary
	switch cmd {
	case cvCmd.FullCommand():
		summary, err = a.crossValidate(ctx, os.Stdout)
	case sweepCmd.FullCommand():
		summary, err = a.sweep(ctx, os.Stdout, *plotDir)
	case fitCmd.FullCommand():
		summary, err = a.fit(ctx, os.Stdout)
	}
	if err != nil {
		log.Fatal(err)
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = cfg.Sampler.Seed
	summary.NThreads = effectiveNThreads
	summary.TotalTime = deltaT.Seconds()

	// output summary in json format
	if *jsonF != "" {
		if err := summary.write(*jsonF); err != nil {
			log.Error("Error writing json output:", err)
		}
	}
}
