// Command trainctl manages archetype model artifacts: generating synthetic
// training populations, fitting the k-means model, and inspecting saved
// artifacts.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"example.com/ecotrack/internal/archetype"
	"example.com/ecotrack/internal/synthetic"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "train":
		err = runTrain(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `trainctl manages archetype model artifacts.

Usage:
  trainctl generate [-users N] [-seed N] [-out FILE]
  trainctl train    [-data FILE] [-users N] [-clusters K] [-seed N] [-out DIR]
  trainctl inspect  [-models DIR]

generate writes a seeded synthetic population as CSV.
train fits the k-means archetype model and saves the artifact files.
inspect prints the clusters of a saved artifact.
`)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	users := fs.Int("users", 500, "number of synthetic users")
	seed := fs.Int64("seed", 42, "population seed")
	out := fs.String("out", "training_data.csv", `output path, "-" for stdout`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *users <= 0 {
		return fmt.Errorf("users must be positive, got %d", *users)
	}

	profiles := synthetic.Generate(*users, *seed)

	var w io.Writer = os.Stdout
	var file *os.File
	if *out != "-" {
		var err error
		file, err = os.Create(*out)
		if err != nil {
			return err
		}
		w = file
	}

	if err := synthetic.WriteCSV(w, profiles); err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %d profiles to %s\n", len(profiles), *out)
	}
	return nil
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	data := fs.String("data", "", "training CSV; empty generates a synthetic population")
	users := fs.Int("users", 500, "synthetic population size when -data is not set")
	clusters := fs.Int("clusters", 6, "number of archetype clusters")
	seed := fs.Int64("seed", 42, "seed for both population and clustering")
	out := fs.String("out", "./models", "artifact output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var profiles []synthetic.UserProfile
	if *data != "" {
		file, err := os.Open(*data)
		if err != nil {
			return err
		}
		profiles, err = synthetic.ReadCSV(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", *data, err)
		}
	} else {
		profiles = synthetic.Generate(*users, *seed)
	}

	rows := make([]archetype.TrainingRow, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, archetype.TrainingRow{
			Features:          p.FeatureVector(),
			FlightEmissionsKg: p.FlightEmissionsKg,
			TotalEmissionsKg:  p.TotalEmissionsKg,
		})
	}

	model, err := archetype.Train(rows, archetype.KMeansConfig{Clusters: *clusters, Seed: *seed})
	if err != nil {
		return err
	}
	if err := archetype.NewFileStore(*out).Save(model); err != nil {
		return err
	}

	fmt.Printf("trained model %s on %d rows, artifact saved to %s\n", model.Version, len(rows), *out)
	printClusters(model)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dir := fs.String("models", "./models", "artifact directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	model, err := archetype.NewFileStore(*dir).Load()
	if err != nil {
		return err
	}

	fmt.Printf("version:    %s\n", model.Version)
	fmt.Printf("trained_at: %s\n", model.TrainedAt.Format(time.RFC3339))
	fmt.Printf("clusters:   %d\n", len(model.Centroids))
	printClusters(model)
	return nil
}

func printClusters(model *archetype.Model) {
	ids := make([]int, 0, len(model.Descriptions))
	for id := range model.Descriptions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		d := model.Descriptions[id]
		fmt.Printf("  cluster %d: %-26s size=%-4d avg_total=%8.0f kg  dominant=%s (%.0f%%)\n",
			id, d.Archetype, d.Stats.Size, d.Stats.AvgTotalEmissions, d.DominantSource, d.DominantRatio*100)
	}
}
