// archivectl inspects and serves a world's region archives: listing the
// index, dumping one archive, verifying every file on disk, and running the
// loopback observer endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/indexdb"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/transport/observer"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "ls":
			lsCmd(os.Args[2:])
			return
		case "info":
			infoCmd(os.Args[2:])
			return
		case "verify":
			verifyCmd(os.Args[2:])
			return
		case "serve":
			serveCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: archivectl {ls|info|verify|serve} [flags]")
	os.Exit(2)
}

func lsCmd(args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()

	rows, err := idx.ListArchives(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		days := float64(r.AbandonedTick) / float64(region.TicksPerDay)
		fmt.Printf("%-36s  tick %-12d (day %.1f)  %4d entities  %3d groups  %s\n",
			r.RegionID, r.AbandonedTick, days, r.Entities, r.Groups, r.RecordedAt)
	}
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	regionID := fs.String("region", "", "region id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*regionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -region")
		os.Exit(2)
	}

	dir := filepath.Join(*dataDir, "archives")
	rec, err := archivefile.Read(dir, *regionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	fmt.Printf("region:     %s\n", rec.Header.RegionID)
	fmt.Printf("version:    %d\n", rec.Header.Version)
	fmt.Printf("abandoned:  tick %d (day %.1f)\n",
		rec.Header.AbandonedTick, float64(rec.Header.AbandonedTick)/float64(region.TicksPerDay))
	fmt.Printf("size:       %dx%d\n", rec.Width, rec.Height)
	fmt.Printf("entities:   %d\n", len(rec.Entities))
	fmt.Printf("groups:     %d\n", len(rec.Groups))

	kinds := map[string]int{}
	for _, e := range rec.Entities {
		kinds[region.Kind(e.Kind).String()]++
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("  %-12s %d\n", k, kinds[k])
	}

	if len(rec.Components) > 0 {
		keys := make([]string, 0, len(rec.Components))
		for k := range rec.Components {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("components: %s\n", strings.Join(keys, ", "))
	}
}

func verifyCmd(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "archives")
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read dir:", err)
		os.Exit(1)
	}

	bad := 0
	checked := 0
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".bin.zst") {
			continue
		}
		checked++
		id := strings.TrimSuffix(strings.TrimPrefix(name, "region_"), ".bin.zst")
		if _, err := archivefile.Read(dir, id); err != nil {
			bad++
			fmt.Printf("CORRUPT  %s: %v\n", name, err)
			continue
		}
		fmt.Printf("ok       %s\n", name)
	}
	fmt.Printf("%d checked, %d corrupt\n", checked, bad)
	if bad > 0 {
		os.Exit(1)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	addr := fs.String("addr", "127.0.0.1:8743", "listen address (loopback)")
	_ = fs.Parse(args)

	logger := log.New(os.Stderr, "[archivectl] ", log.LstdFlags|log.Lmsgprefix)

	idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	reg := prometheus.NewRegistry()
	srv := observer.NewServer(idx, observer.NewFeed(), reg, logger)

	logger.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}
