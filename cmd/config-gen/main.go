// Command config-gen rewrites the existing config/client_config.json
// with a pseudo-randomly chosen local tracer port, so running several
// clients side by side on one shared machine doesn't collide on the
// tracer listen address. Adapted from the teacher's genPort()/
// updateConfig() pair, which did the same for the coordinator/worker/
// client/tracer JSON quartet; this repo has a single config file
// instead of four.
package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func genPort() int {
	return rand.Intn(35535-1024) + 1024
}

func main() {
	rand.Seed(time.Now().UnixNano())

	path := filepath.Join("config", "client_config.json")

	fileRead, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.NewDecoder(fileRead).Decode(&raw); err != nil {
		fileRead.Close()
		log.Fatal(err)
	}
	fileRead.Close()

	tracer, _ := raw["tracer"].(map[string]interface{})
	if tracer == nil {
		tracer = map[string]interface{}{}
		raw["tracer"] = tracer
	}
	tracer["serveraddr"] = ":" + strconv.Itoa(genPort())

	fileWrite, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer fileWrite.Close()
	encoder := json.NewEncoder(fileWrite)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(raw); err != nil {
		log.Fatal(err)
	}

	log.Printf("wrote tracer.serveraddr=%v to %s", tracer["serveraddr"], path)
}
