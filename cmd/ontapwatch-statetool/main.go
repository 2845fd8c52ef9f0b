package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ontapwatch/ontapwatch/pkg/blob"
)

var (
	dataDir = flag.String("data-dir", "/var/lib/ontapwatch", "Local state directory")
	bucket  = flag.String("bucket", "", "S3 bucket holding engine state")
	region  = flag.String("region", "", "Region of the S3 bucket")
	dryRun  = flag.Bool("dry-run", false, "Show what would be copied without writing anything")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	log.SetFlags(log.LstdFlags)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch args[0] {
	case "list":
		err = runList(ctx)
	case "dump":
		if len(args) != 2 {
			log.Fatal("usage: ontapwatch-statetool dump KEY")
		}
		err = runDump(ctx, args[1])
	case "copy":
		if len(args) != 2 || (args[1] != "to-s3" && args[1] != "to-local") {
			log.Fatal("usage: ontapwatch-statetool copy to-s3|to-local")
		}
		err = runCopy(ctx, args[1])
	default:
		log.Fatalf("Unknown command %q", args[0])
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `OntapWatch state maintenance tool.

Usage:
  ontapwatch-statetool [flags] list
  ontapwatch-statetool [flags] dump KEY
  ontapwatch-statetool [flags] copy to-s3|to-local

list prints every state blob key in the selected backend (S3 when --bucket
is set, the local database otherwise). dump writes one blob to stdout. copy
replicates every blob between the local database and the bucket, in the
named direction.

Flags:`)
	flag.PrintDefaults()
}

// pick selects the backend the flags name: S3 when a bucket is given, the
// local database otherwise.
func pick(ctx context.Context) (blob.Store, error) {
	if *bucket != "" {
		return openS3(ctx)
	}
	return openLocal()
}

func openLocal() (blob.Store, error) {
	if *dataDir == "" {
		return nil, fmt.Errorf("--data-dir is required for the local backend")
	}
	return blob.NewBoltStore(*dataDir)
}

func openS3(ctx context.Context) (blob.Store, error) {
	if *bucket == "" || *region == "" {
		return nil, fmt.Errorf("--bucket and --region are required for the S3 backend")
	}
	return blob.NewS3Store(ctx, *bucket, *region)
}

func runList(ctx context.Context) error {
	store, err := pick(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		log.Println("No state blobs found")
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	log.Printf("✓ %d state blobs", len(keys))
	return nil
}

func runDump(ctx context.Context, key string) error {
	store, err := pick(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func runCopy(ctx context.Context, direction string) error {
	local, err := openLocal()
	if err != nil {
		return err
	}
	defer local.Close()

	remote, err := openS3(ctx)
	if err != nil {
		return err
	}
	defer remote.Close()

	var src, dst blob.Store
	if direction == "to-s3" {
		src, dst = local, remote
	} else {
		src, dst = remote, local
	}

	keys, err := src.List(ctx)
	if err != nil {
		return err
	}
	log.Printf("Found %d state blobs to copy (%s)", len(keys), direction)

	copied := 0
	for _, key := range keys {
		if *dryRun {
			log.Printf("[DRY RUN] Would copy %s", key)
			continue
		}
		data, err := src.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if err := dst.Put(ctx, key, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		copied++
		if copied%10 == 0 {
			log.Printf("  Copied %d/%d...", copied, len(keys))
		}
	}

	if *dryRun {
		log.Println("Dry run completed. No changes made.")
		return nil
	}
	log.Printf("✓ Copied %d state blobs", copied)
	return nil
}
