/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
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

package webhook

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"time"

	"github.com/yorkie-team/h5p-shared-state/pkg/errors"
)

// ErrInvalidURL is returned when a webhook URL is malformed or points into a
// private network.
var ErrInvalidURL = errors.InvalidArgument("invalid webhook URL").WithCode("ErrInvalidWebhookURL")

const resolveTimeout = 5 * time.Second

// ValidateURL checks that rawURL is an http(s) URL whose host resolves only
// to public addresses. Hosts that fail to resolve are rejected. allowPrivate
// skips the address check for deployments where the host application runs
// next to the server.
func ValidateURL(rawURL string, allowPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q: %w", u.Scheme, ErrInvalidURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("no host in %q: %w", rawURL, ErrInvalidURL)
	}
	if allowPrivate {
		return nil
	}

	addrs, err := resolve(host)
	if err != nil {
		return fmt.Errorf("resolve %s: %v: %w", host, err, ErrInvalidURL)
	}
	for _, addr := range addrs {
		if private(addr) {
			return fmt.Errorf("%s resolves to %s: %w", host, addr, ErrInvalidURL)
		}
	}
	return nil
}

func resolve(host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// private reports whether the address must not be reached by webhooks.
func private(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsUnspecified() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		sharedAddressSpace.Contains(addr)
}

// sharedAddressSpace is the carrier-grade NAT range of RFC 6598.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")
