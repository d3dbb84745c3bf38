package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

const (
	maxGoroutines = 10
)

var (
	listFlag    = flag.String("l", "", "The path to the list of midi files,\nfind . -type f -name \"*.mid\" > midi_list.txt")
	maxFlag     = flag.Int("p", maxGoroutines, "Number of files processed in parallel, must be > 0")
	outFlag     = flag.String("o", "", "Output database json file, stdout if empty")
	strictFlag  = flag.Bool("strict", false, "Stop at the first file that fails to decode")
	verboseFlag = flag.Bool("v", false, "Debug logging")
)

func readList(file *os.File) <-chan string {
	out := make(chan string)

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)

	go func() {
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				out <- line
			}
		}
		close(out)
	}()

	return out
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *listFlag == "" {
		flag.Usage()
		return
	}

	if *maxFlag <= 0 {
		flag.Usage()
		return
	}

	if *verboseFlag {
		logger, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer logger.Sync()
		enableDebugLogging(logger)
	}

	f, err := os.Open(*listFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := readList(f)
	db, err := newVelocityMap(ctx, paths, *maxFlag, *strictFlag)
	if err != nil {
		log.Fatal(err)
	}

	out := os.Stdout
	if *outFlag != "" {
		out, err = os.Create(*outFlag)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()
	}

	if err := db.Save(out); err != nil {
		log.Fatal(err)
	}
}
