package net

import (
	"fmt"
	"os"

	"github.com/hashicorp/mdns"
)

const serviceType = "_tableslate._tcp"

// Advertise announces the table on the local network so clients can find
// it without typing an address. Close the returned server on shutdown.
func Advertise(port int, tableName string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("advertise: hostname: %w", err)
	}

	info := []string{"tableslate", tableName}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("advertise: create service: %w", err)
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("advertise: start server: %w", err)
	}
	return srv, nil
}

// Browse reports the name and address of every table found on the local
// network. It blocks for the duration of the mDNS query.
func Browse(found func(name, addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if name, addr, ok := tableEntry(e); ok {
				found(name, addr)
			}
		}
	}()
	err := mdns.Lookup(serviceType, entries)
	close(entries)
	<-done
	return err
}

// tableEntry extracts the advertised table name and dial address from a
// discovered service entry. The name rides in the second info field, the
// slot Advertise writes it to.
func tableEntry(e *mdns.ServiceEntry) (name, addr string, ok bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", "", false
	}
	if len(e.InfoFields) > 1 {
		name = e.InfoFields[1]
	}
	return name, fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port), true
}
