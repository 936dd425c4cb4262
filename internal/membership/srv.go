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

package membership

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// SRVResolver discovers peers via a DNS SRV record, for clusters
// running behind a service-discovery DNS server (e.g. a Kubernetes
// headless service) rather than on a shared multicast LAN segment.
type SRVResolver struct {
	// RecordName is the SRV record to query, e.g.
	// "_crdtstore._tcp.cluster.svc.local".
	RecordName string
	// Server is the DNS server to query, "host:port". Defaults to
	// "127.0.0.1:53" if empty.
	Server string
}

// Resolve queries RecordName and returns one Peer per answer, using the
// target hostname as ReplicaID (callers that need the real replica id
// distinct from the hostname should prefer StaticResolver or mDNS
// instead).
func (r *SRVResolver) Resolve() ([]Peer, error) {
	server := r.Server
	if server == "" {
		server = "127.0.0.1:53"
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(r.RecordName), dns.TypeSRV)

	client := new(dns.Client)
	resp, _, err := client.Exchange(msg, server)
	if err != nil {
		return nil, fmt.Errorf("dns SRV query for %s: %w", r.RecordName, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns SRV query for %s: rcode %s", r.RecordName, dns.RcodeToString[resp.Rcode])
	}

	peers := make([]Peer, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		srv, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		host := strings.TrimSuffix(srv.Target, ".")
		peers = append(peers, Peer{
			ReplicaID: host,
			Addr:      fmt.Sprintf("%s:%d", host, srv.Port),
		})
	}
	return peers, nil
}
