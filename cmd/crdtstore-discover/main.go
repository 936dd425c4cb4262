/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
crdtstore-discover - replica discovery tool

Discovers other crdtstore replicas on the local network using mDNS.
Useful for finding peers to pass as a StaticResolver peer list, or just
to check that a replica's Advertiser is reachable.

Usage:

	crdtstore-discover                  # discover peers (5 second timeout)
	crdtstore-discover --timeout 10     # custom timeout in seconds
	crdtstore-discover --json           # output as JSON
	crdtstore-discover --quiet          # only output "id=addr" pairs (for scripting)
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"crdtstore/internal/config"
	"crdtstore/internal/membership"
)

const (
	version   = "1.0.0"
	copyright = "Copyright (c) 2026 Firefly Software Solutions Inc."
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func main() {
	defaultID := "discover-client"
	cfgMgr := config.Global()
	cfgMgr.LoadFromEnv()
	if cfg := cfgMgr.Get(); cfg.ReplicaID != "" {
		defaultID = cfg.ReplicaID
	}

	selfID := flag.String("id", defaultID, "replica id to exclude from results (default: "+config.EnvReplicaID+" if set)")
	timeout := flag.Int("timeout", 5, "discovery timeout in seconds")
	jsonOutput := flag.Bool("json", false, "output as JSON")
	quiet := flag.Bool("quiet", false, "only output \"id=addr\" pairs (for scripting)")
	help := flag.Bool("help", false, "show help")
	showVersion := flag.Bool("version", false, "show version information")
	flag.BoolVar(quiet, "q", false, "only output \"id=addr\" pairs (for scripting)")
	flag.BoolVar(help, "h", false, "show help")
	flag.BoolVar(showVersion, "v", false, "show version information")

	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// the hashicorp/mdns library logs IPv6 errors to the default logger
	// that aren't worth surfacing here.
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		printBanner()
		fmt.Printf("%s%sℹ%s Scanning for crdtstore replicas on the network (timeout: %ds)...\n\n",
			cyan, bold, reset, *timeout)
	}

	browser := membership.NewBrowser(*selfID)
	peers, err := browser.Discover(time.Duration(*timeout) * time.Second)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "%s%s✗%s discovery failed: %v\n", red, bold, reset, err)
		}
		os.Exit(1)
	}

	if len(peers) == 0 {
		if !*quiet && !*jsonOutput {
			fmt.Printf("%s%s⚠%s no crdtstore replicas found on the network.\n\n", yellow, bold, reset)
			fmt.Printf("%s  Common issues:%s\n", dim, reset)
			fmt.Printf("    %s•%s no replica is advertising (membership.Advertise was never called)\n", yellow, reset)
			fmt.Printf("    %s•%s mDNS is blocked by a firewall (UDP port 5353)\n", yellow, reset)
			fmt.Printf("    %s•%s replicas are on a different network segment\n\n", yellow, reset)
			if static := cfgMgr.Get().PeerList(); len(static) > 0 {
				fmt.Printf("%s  Falling back to the static peer list in %s:%s\n", dim, config.EnvPeers, reset)
				for _, p := range static {
					fmt.Printf("    %s•%s %s\n", green, reset, p)
				}
				fmt.Println()
			}
		}
		os.Exit(0)
	}

	switch {
	case *jsonOutput:
		outputJSON(peers)
	case *quiet:
		outputQuiet(peers)
	default:
		outputHuman(peers)
	}
}

func printBanner() {
	fmt.Println()
	fmt.Printf("  %s%scrdtstore-discover%s %sv%s%s\n", green, bold, reset, dim, version, reset)
	fmt.Printf("  %sReplica discovery over mDNS%s\n\n", dim, reset)
}

func printVersion() {
	fmt.Println()
	fmt.Printf("  %s%scrdtstore-discover%s %sv%s%s\n", cyan, bold, reset, dim, version, reset)
	fmt.Printf("  %s%s%s\n\n", dim, copyright, reset)
}

func printUsage() {
	printBanner()
	fmt.Printf("%sUsage:%s crdtstore-discover [options]\n\n", bold, reset)
	fmt.Printf("%s%sOPTIONS%s\n\n", bold, cyan, reset)
	fmt.Printf("    %s--id%s <replica-id>    Exclude this replica id from results\n", green, reset)
	fmt.Printf("    %s--timeout%s <seconds>  Discovery timeout (default: 5)\n", green, reset)
	fmt.Printf("    %s--json%s               Output results as JSON\n", green, reset)
	fmt.Printf("    %s--quiet%s, %s-q%s          Only output \"id=addr\" pairs\n", green, reset, green, reset)
	fmt.Printf("    %s--version%s, %s-v%s        Show version information\n", green, reset, green, reset)
	fmt.Printf("    %s--help%s, %s-h%s           Show this help message\n\n", green, reset, green, reset)
	fmt.Printf("%s%sEXAMPLES%s\n\n", bold, cyan, reset)
	fmt.Printf("%s    # Get a peer list usable as %s for a StaticResolver%s\n", dim, config.EnvPeers, reset)
	fmt.Println("    PEERS=$(crdtstore-discover --quiet)")
	fmt.Println()
}

func outputJSON(peers []membership.Peer) {
	type peerOutput struct {
		ReplicaID string `json:"replica_id"`
		Addr      string `json:"addr"`
	}
	out := make([]peerOutput, len(peers))
	for i, p := range peers {
		out[i] = peerOutput{ReplicaID: p.ReplicaID, Addr: p.Addr}
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func outputQuiet(peers []membership.Peer) {
	entries := make([]string, len(peers))
	for i, p := range peers {
		entries[i] = fmt.Sprintf("%s=%s", p.ReplicaID, p.Addr)
	}
	fmt.Println(strings.Join(entries, ","))
}

func outputHuman(peers []membership.Peer) {
	fmt.Printf("%s%s✓%s Found %d replica(s)\n\n", green, bold, reset, len(peers))
	for i, p := range peers {
		fmt.Printf("  %s[%d]%s %s%s%s\n", dim, i+1, reset, bold+cyan, p.ReplicaID, reset)
		fmt.Printf("      %sAddress:%s %s%s%s\n\n", dim, reset, green, p.Addr, reset)
	}
	fmt.Printf("%s  Tip: use --json for machine-readable output, or --quiet for a StaticResolver peer list%s\n\n", dim, reset)
}
