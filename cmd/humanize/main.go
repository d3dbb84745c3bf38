package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Garik-/midi/pkg/midi"
	"github.com/Garik-/midi/pkg/velocity"
	"go.uber.org/zap"
)

var (
	databaseFlag = flag.String("d", "", "The path to the database json file, uniform random velocities if empty")
	inFlag       = flag.String("i", "", "Input midi file")
	outFlag      = flag.String("o", "", "Output midi file")
	minFlag      = flag.Int("min", 1, "Min velocity")
	maxFlag      = flag.Int("max", 127, "Max velocity")
	seedFlag     = flag.Int64("seed", 0, "Random seed, current time if 0")
	verboseFlag  = flag.Bool("v", false, "Debug logging")
)

func importDatabase(name string) (velocity.Database, error) {
	if name == "" {
		return nil, nil
	}

	jsonFile, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer jsonFile.Close()

	return velocity.Load(jsonFile)
}

func decodeFile(name string) (*midi.File, error) {
	in, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	return midi.NewDecoder(in).Decode()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inFlag == "" || *outFlag == "" {
		flag.Usage()
		return
	}

	logger := zap.NewNop()
	if *verboseFlag {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer logger.Sync()
		midi.EnableDebugLogging(logger)
	}

	data, err := importDatabase(*databaseFlag)
	if err != nil {
		log.Fatal(err)
	}

	f, err := decodeFile(*inFlag)
	if err != nil {
		log.Fatal(err)
	}

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}

	n, err := velocity.NewHumanizer(data, *minFlag, *maxFlag, seed).File(f)
	if err != nil {
		log.Fatal(err)
	}
	logger.Debug("humanized", zap.String("file", *inFlag), zap.Int("notes", n), zap.Int64("seed", seed))

	out, err := os.Create(*outFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if _, err := f.WriteTo(out); err != nil {
		log.Fatal(err)
	}
}
