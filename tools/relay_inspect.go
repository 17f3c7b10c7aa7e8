package main

import (
	"bubble-relay/infrastructure/storage"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Prefix to scan; empty prints per-client pools")
	limit := flag.Int("limit", 200, "Maximum keys to print, 0 for all")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	inspector := storage.NewInspector(db)
	table := newTable()
	ctx := context.Background()

	if *prefix == "" {
		pools, err := inspector.ClientPools(ctx)
		if err != nil {
			log.Fatal(err)
		}
		table.SetHeader([]string{"Client", "Key packages", "Mailbox"})
		for _, p := range pools {
			table.Append([]string{p.ClientID.String(), strconv.Itoa(p.KeyPackages), strconv.Itoa(p.Mailbox)})
		}
		table.Render()
		fmt.Printf("\n%d clients holding key packages or pending messages\n", len(pools))
		return
	}

	rows, err := inspector.Scan(ctx, *prefix, *limit)
	if err != nil {
		log.Fatal(err)
	}
	table.SetHeader([]string{"Key", "Kind", "Entity", "Seq", "Size"})
	for _, row := range rows {
		table.Append([]string{row.Key, row.Kind, row.Entity, row.Seq, strconv.Itoa(row.Size)})
	}
	table.Render()
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
