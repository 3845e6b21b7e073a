// Command grovectl is a small CLI exercising a GroveDB instance end to
// end: insert, get, delete, prove, and verify against a badger-backed
// store on disk, mirroring the teacher's cmd/checkpeer style (a thin
// os.Args dispatcher over a single library call, log.Fatalf on error).
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dashpay/grovedb-go/feature"
	"github.com/dashpay/grovedb-go/grovedb"
	"github.com/dashpay/grovedb-go/prove"
	"github.com/dashpay/grovedb-go/query"
	"github.com/dashpay/grovedb-go/storage"
	"github.com/dashpay/grovedb-go/storage/badgerstore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	dbFlag := flag.NewFlagSet("grovectl", flag.ExitOnError)
	dataDir := dbFlag.String("db", "./grovedb-data", "badger data directory")
	pathFlag := dbFlag.String("path", "", "comma-separated subtree path")
	_ = dbFlag.Parse(os.Args[2:])

	store, err := badgerstore.New(&badgerstore.Config{DataDir: *dataDir})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.CloseStore()

	db, err := grovedb.Open(grovedb.Config{Backend: store, TreeType: feature.TreeBasic})
	if err != nil {
		log.Fatalf("open grovedb: %v", err)
	}

	path := splitPath(*pathFlag)
	args := dbFlag.Args()

	switch os.Args[1] {
	case "insert":
		runInsert(db, path, args)
	case "get":
		runGet(db, path, args)
	case "delete":
		runDelete(db, path, args)
	case "prove":
		runProve(db, path, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: grovectl <insert|get|delete|prove> [-db dir] [-path a,b,c] args...")
	fmt.Println("  insert <key> <value>   insert a leaf")
	fmt.Println("  get <key>              read a leaf")
	fmt.Println("  delete <key>           remove a leaf")
	fmt.Println("  prove <key>            generate and verify a proof for key")
}

func splitPath(s string) storage.Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	path := make(storage.Path, len(parts))
	for i, p := range parts {
		path[i] = []byte(p)
	}
	return path
}

func runInsert(db *grovedb.DB, path storage.Path, args []string) {
	if len(args) < 2 {
		log.Fatal("insert requires <key> <value>")
	}
	if _, err := db.Insert(path, []byte(args[0]), []byte(args[1]), feature.Basic(), false); err != nil {
		log.Fatalf("insert: %v", err)
	}
	fmt.Println("ok")
}

func runGet(db *grovedb.DB, path storage.Path, args []string) {
	if len(args) < 1 {
		log.Fatal("get requires <key>")
	}
	v, _, err := db.Get(path, []byte(args[0]))
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	if v == nil {
		fmt.Println("<not found>")
		return
	}
	fmt.Println(string(v))
}

func runDelete(db *grovedb.DB, path storage.Path, args []string) {
	if len(args) < 1 {
		log.Fatal("delete requires <key>")
	}
	if _, err := db.Delete(path, []byte(args[0])); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("ok")
}

func runProve(db *grovedb.DB, path storage.Path, args []string) {
	if len(args) < 1 {
		log.Fatal("prove requires <key>")
	}
	q := query.New()
	q.InsertItem(query.NewKey([]byte(args[0])))
	pq := &query.PathQuery{Path: [][]byte(path), Query: query.SizedQuery{Query: q}}

	lp, _, err := db.Prove(pq)
	if err != nil {
		log.Fatalf("prove: %v", err)
	}

	root, results, err := grovedb.VerifyQuery(lp, pq, prove.VerifyOptions{})
	if err != nil {
		log.Fatalf("verify: %v", err)
	}

	fmt.Printf("root: %s\n", hex.EncodeToString(root[:]))
	for _, r := range results {
		if r.Value == nil {
			fmt.Printf("%s: <absent>\n", r.Key)
			continue
		}
		fmt.Printf("%s: %s\n", r.Key, r.Value)
	}
}
