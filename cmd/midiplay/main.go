package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Garik-/midi/pkg/midi"
	"github.com/Garik-/midi/pkg/midi/midiout"
	"github.com/Garik-/midi/pkg/midi/processor"
	"go.uber.org/zap"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	inFlag      = flag.String("i", "", "Input midi file")
	portFlag    = flag.String("port", "", "Output port name or part of it, no output if empty")
	kindsFlag   = flag.String("kinds", "", "Comma separated event kinds to print, e.g. NoteOn,Tempo,Metronome; all if empty")
	listFlag    = flag.Bool("list", false, "List output ports and exit")
	quietFlag   = flag.Bool("q", false, "Do not print events")
	verboseFlag = flag.Bool("v", false, "Debug logging")
)

func parseKinds(s string) ([]midi.Kind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []midi.Kind
	for _, name := range strings.Split(s, ",") {
		k, ok := midi.ParseKind(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown event kind %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
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

	defer midiout.Close()

	if *listFlag {
		for _, name := range midiout.Ports() {
			fmt.Println(name)
		}
		return
	}

	if *inFlag == "" {
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
		processor.EnableDebugLogging(logger)
		midiout.EnableDebugLogging(logger)
	}

	kinds, err := parseKinds(*kindsFlag)
	if err != nil {
		log.Fatal(err)
	}

	f, err := decodeFile(*inFlag)
	if err != nil {
		log.Fatal(err)
	}

	p, err := processor.New(f, processor.WithLogger(logger.Named("processor")))
	if err != nil {
		log.Fatal(err)
	}

	if !*quietFlag {
		pr := newPrinter(os.Stdout)
		if len(kinds) == 0 {
			p.RegisterAll(pr)
		} else {
			p.Register(pr, kinds...)
		}
	}

	if *portFlag != "" {
		sender, err := midiout.Open(*portFlag)
		if err != nil {
			log.Fatal(err)
		}
		p.RegisterAll(sender)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		p.Stop()
	}()

	p.Start()
	p.Wait()
}
