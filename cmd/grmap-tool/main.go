package main

// grmap-tool merges GUID range maps and prints the result.
//
// Usage: grmap-tool [-dateline] [-instance ID] map1.grm [map2.grm ...]

import (
	"flag"
	"fmt"
	"os"

	"github.com/googlearchive/graphd/grmap"
	"github.com/grailbio/base/grail"
	"v.io/x/lib/vlog"
)

var (
	datelineFlag = flag.Bool("dateline", false,
		"Print the merged map's dateline instead of its text form")
	instanceFlag = flag.String("instance", "",
		"Instance ID to prefix the dateline with")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	args := flag.Args()
	if len(args) == 0 {
		vlog.Fatalf("usage: grmap-tool [-dateline] map1.grm [map2.grm ...]")
	}

	merged := grmap.New()
	for _, path := range args {
		m, err := grmap.NewFromPath(path)
		if err != nil {
			vlog.Fatalf("read %v: %v", path, err)
		}
		vlog.VI(1).Infof("%v: read ok", path)
		it := m.Iter()
		for it.Next() {
			src, dst, n := it.Mapping()
			if err := merged.AddRange(src, dst, n); err != nil {
				if grmap.IsOverlap(err) {
					vlog.Fatalf("%v: conflicts with an earlier input: %v", path, err)
				}
				vlog.Fatalf("%v: %v", path, err)
			}
		}
	}

	if *datelineFlag {
		dl := merged.Dateline()
		dl.SetInstance(*instanceFlag)
		fmt.Println(dl.String())
		return
	}
	if _, err := merged.WriteTo(os.Stdout); err != nil {
		vlog.Fatalf("write: %v", err)
	}
}
