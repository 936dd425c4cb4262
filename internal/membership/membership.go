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
Package membership discovers peer replicas so the broadcast fabric knows
who to fan envelopes out to. Advertiser/Browser use mDNS for
zero-config LAN clusters; for environments where multicast isn't
available (containers, cloud VPCs), StaticResolver reads a fixed peer
list given directly and SRVResolver looks one up via DNS SRV records.
*/
package membership

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"crdtstore/internal/logging"
)

// servicePrefix namespaces this application's mDNS service type so a
// browse doesn't pick up unrelated services on the same network.
const servicePrefix = "_crdtstore._tcp"

// Peer is one discovered replica: its cluster identity and dial
// address.
type Peer struct {
	ReplicaID string
	Addr      string // host:port
}

func (p Peer) String() string { return fmt.Sprintf("%s@%s", p.ReplicaID, p.Addr) }

// Advertiser publishes this replica's presence over mDNS so other
// replicas' Browser can find it.
type Advertiser struct {
	server *mdns.Server
}

// Advertise registers replicaID on port via mDNS and returns a handle
// to shut the advertisement down.
func Advertise(replicaID string, port int) (*Advertiser, error) {
	info := []string{"crdtstore replica"}
	service, err := mdns.NewMDNSService(replicaID, servicePrefix, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("building mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("starting mdns server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown stops advertising.
func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// Browser discovers other replicas advertising over mDNS.
type Browser struct {
	selfID string
	log    *logging.Logger
}

// NewBrowser returns a Browser that excludes selfID from its results (a
// replica never needs to discover itself).
func NewBrowser(selfID string) *Browser {
	return &Browser{selfID: selfID, log: logging.NewLogger("membership")}
}

// Discover runs one mDNS query and returns every other replica that
// responded within timeout. Best-effort: a query that finds nothing
// returns an empty slice, not an error.
func (b *Browser) Discover(timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var peers []Peer
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range entries {
			if e.Name == "" || strings.HasPrefix(e.Name, b.selfID+".") {
				continue
			}
			replicaID := strings.SplitN(e.Name, ".", 2)[0]
			if replicaID == b.selfID {
				continue
			}
			peers = append(peers, Peer{
				ReplicaID: replicaID,
				Addr:      fmt.Sprintf("%s:%d", e.AddrV4, e.Port),
			})
		}
	}()

	params := mdns.DefaultParams(servicePrefix)
	params.Entries = entries
	params.Timeout = timeout
	if err := mdns.Query(params); err != nil {
		close(entries)
		<-done
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	close(entries)
	<-done
	return peers, nil
}

// StaticResolver resolves peers from a fixed address list, each entry
// "replica-id=host:port", as supplied by Config.PeerList.
type StaticResolver struct {
	entries []string
}

// NewStaticResolver wraps a peer list as read from the environment.
func NewStaticResolver(entries []string) *StaticResolver {
	return &StaticResolver{entries: entries}
}

// Members parses every "replica-id=host:port" entry, skipping malformed
// ones rather than failing the whole resolution.
func (r *StaticResolver) Members() []Peer {
	peers := make([]Peer, 0, len(r.entries))
	for _, entry := range r.entries {
		id, addr, ok := strings.Cut(entry, "=")
		if !ok || id == "" || addr == "" {
			continue
		}
		peers = append(peers, Peer{ReplicaID: id, Addr: addr})
	}
	return peers
}
