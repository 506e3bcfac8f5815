// ABOUTME: Tests for mDNS service discovery
// ABOUTME: Validates Manager lifecycle, TXT records and entry conversion
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		InstanceName: "test-service",
		Port:         8928,
	}

	manager := NewManager(config)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	defer manager.Stop()

	if manager.config.InstanceName != "test-service" {
		t.Errorf("expected InstanceName 'test-service', got '%s'", manager.config.InstanceName)
	}
	if manager.Servers() == nil {
		t.Fatal("Servers() returned nil channel")
	}
}

func TestManagerStop(t *testing.T) {
	manager := NewManager(Config{InstanceName: "test", Port: 8928})
	manager.Stop()

	select {
	case <-manager.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("context should be cancelled after Stop()")
	}
}

func TestLookupHonoursContext(t *testing.T) {
	manager := NewManager(Config{})
	defer manager.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := manager.Lookup(ctx); err == nil {
		t.Error("expected error from cancelled lookup")
	}
}

func TestTXTRecords(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{"default path", Config{}, "path=/lubdub"},
		{"custom path", Config{Path: "/beats"}, "path=/beats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txt := txtRecords(tt.config)
			if len(txt) == 0 || txt[0] != tt.expected {
				t.Errorf("expected first record %q, got %v", tt.expected, txt)
			}
		})
	}
}

func TestServerFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "kitchen._lubdub._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8928,
		InfoFields: []string{"path=/beats", "proto=1"},
	}

	server := serverFromEntry(entry)
	if server == nil {
		t.Fatal("expected server info")
	}
	if server.Name != "kitchen" {
		t.Errorf("expected name kitchen, got %q", server.Name)
	}
	if server.Addr() != "192.168.1.20:8928" {
		t.Errorf("expected addr 192.168.1.20:8928, got %s", server.Addr())
	}
	if server.Path != "/beats" {
		t.Errorf("expected path /beats, got %s", server.Path)
	}

	if serverFromEntry(&mdns.ServiceEntry{Name: "v6only"}) != nil {
		t.Error("expected entries without IPv4 to be skipped")
	}
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	if err != nil {
		t.Fatalf("getLocalIPs failed: %v", err)
	}

	for _, ip := range ips {
		if ip.To4() == nil {
			t.Errorf("getLocalIPs returned non-IPv4 address: %v", ip)
		}
		if ip.IsLoopback() {
			t.Errorf("getLocalIPs returned loopback address: %v", ip)
		}
	}
}
