package main

import (
	"flag"
	"log"
	"strings"

	"github.com/gocql/gocql"

	"github.com/nileshj/vibelink/pkg/store"
)

func main() {
	hosts := flag.String("hosts", "localhost:9042", "comma-separated ScyllaDB hosts")
	keyspace := flag.String("keyspace", "vibelink", "keyspace name")
	drop := flag.Bool("drop", false, "drop the keyspace before creating it")
	flag.Parse()

	hostList := strings.Split(*hosts, ",")

	if *drop {
		cluster := gocql.NewCluster(hostList...)
		cluster.Keyspace = "system"
		session, err := cluster.CreateSession()
		if err != nil {
			log.Fatal(err)
		}
		if err := session.Query("DROP KEYSPACE IF EXISTS " + *keyspace).Exec(); err != nil {
			log.Fatal(err)
		}
		session.Close()
		log.Printf("Keyspace %s dropped", *keyspace)
	}

	if err := store.EnsureSchema(hostList, *keyspace); err != nil {
		log.Fatal(err)
	}
	log.Printf("Schema ready in keyspace %s", *keyspace)
}
