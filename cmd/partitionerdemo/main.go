// File: cmd/partitionerdemo/main.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/momentics/respartition/partitioner"
	"github.com/momentics/respartition/sched"
	"github.com/momentics/respartition/settings"
	"github.com/momentics/respartition/topology"
)

func main() {
	set := settings.New()
	fs := flag.NewFlagSet("partitionerdemo", flag.ExitOnError)
	apply := settings.RegisterFlags(fs, set)
	dynamicPools := fs.Bool("dynamic-pools", false, "enable AllowDynamicPools")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	apply()

	mode := partitioner.ModeDefault
	if *dynamicPools {
		mode |= partitioner.AllowDynamicPools
	}

	p, err := partitioner.New(topology.NewDefaultDiscoverer(), set, mode)
	if err != nil {
		log.Fatalf("constructing partitioner: %v", err)
	}
	defer p.Close()

	if err := p.CreateThreadPool("io", sched.Static, sched.ModeDefault, nil); err != nil {
		log.Fatalf("creating pool: %v", err)
	}
	if err := p.AddResource(0, "io", true, 1); err != nil {
		log.Fatalf("adding resource: %v", err)
	}

	if err := p.ConfigurePools(); err != nil {
		log.Fatalf("configuring pools: %v", err)
	}

	p.PrintInitPoolData(os.Stdout)

	n := p.GetNumThreadsTotal()
	fmt.Printf("%d worker slot(s) configured across %d pool(s)\n", n, p.NumPools())

	dbg := partitioner.NewDebug(p)
	dbg.WatchSettings()
	set.OnReload(func() { fmt.Println("settings reloaded") })

	fmt.Printf("debug probes: %v\n", dbg.DumpState())
	fmt.Printf("metrics: %v\n", dbg.Metrics())
}
