package gcp

import (
	"context"
	"strings"

	gdns "google.golang.org/api/dns/v1"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// DNS implements cloudjack.DNS on Cloud DNS. Managed zone names cannot
// contain dots, so zones are addressed by a sanitized form of the domain.
type DNS struct {
	svc     *gdns.Service
	project string
	wrap    errorWrapper
}

var _ cloudjack.DNS = (*DNS)(nil)

// NewDNS builds the Cloud DNS adapter.
func NewDNS(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*DNS, error) {
	svc, err := gdns.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating dns client",
			Cause:    err,
		}
	}
	return &DNS{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    newErrorWrapper(cloudjack.ServiceDNS),
	}, nil
}

func (d *DNS) CreateZone(ctx context.Context, domain string, opts cloudjack.ZoneOptions) (cloudjack.Zone, error) {
	description := opts.Comment
	if description == "" {
		description = "managed zone"
	}
	zone := &gdns.ManagedZone{
		Name:        safeZoneName(domain),
		DnsName:     fqdn(domain),
		Description: description,
	}
	if opts.Private {
		zone.Visibility = "private"
	}
	created, err := d.svc.ManagedZones.Create(d.project, zone).Context(ctx).Do()
	if err != nil {
		return cloudjack.Zone{}, d.wrap.wrap(err, "CreateManagedZone", domain)
	}
	return toZone(created), nil
}

func (d *DNS) DeleteZone(ctx context.Context, zoneID string) error {
	err := d.svc.ManagedZones.Delete(d.project, zoneID).Context(ctx).Do()
	return d.wrap.wrap(err, "DeleteManagedZone", zoneID)
}

func (d *DNS) ListZones(ctx context.Context) ([]cloudjack.Zone, error) {
	var zones []cloudjack.Zone
	err := d.svc.ManagedZones.List(d.project).Pages(ctx, func(resp *gdns.ManagedZonesListResponse) error {
		for _, zone := range resp.ManagedZones {
			zones = append(zones, toZone(zone))
		}
		return nil
	})
	if err != nil {
		return nil, d.wrap.wrap(err, "ListManagedZones", "")
	}
	return zones, nil
}

// CreateRecord replaces any existing record set with the same name and
// type, since Cloud DNS rejects additions that collide.
func (d *DNS) CreateRecord(ctx context.Context, zoneID string, record cloudjack.RecordSet) error {
	name := fqdn(record.Name)
	existing, err := d.matchingRecords(ctx, zoneID, name, record.Type)
	if err != nil {
		return err
	}
	change := &gdns.Change{
		Additions: []*gdns.ResourceRecordSet{toResourceRecordSet(record)},
		Deletions: existing,
	}
	_, err = d.svc.Changes.Create(d.project, zoneID, change).Context(ctx).Do()
	return d.wrap.wrap(err, "CreateChange", name)
}

func (d *DNS) DeleteRecord(ctx context.Context, zoneID string, record cloudjack.RecordSet) error {
	change := &gdns.Change{
		Deletions: []*gdns.ResourceRecordSet{toResourceRecordSet(record)},
	}
	_, err := d.svc.Changes.Create(d.project, zoneID, change).Context(ctx).Do()
	return d.wrap.wrap(err, "CreateChange", fqdn(record.Name))
}

func (d *DNS) ListRecords(ctx context.Context, zoneID string) ([]cloudjack.RecordSet, error) {
	var records []cloudjack.RecordSet
	err := d.svc.ResourceRecordSets.List(d.project, zoneID).Pages(ctx, func(resp *gdns.ResourceRecordSetsListResponse) error {
		for _, rrset := range resp.Rrsets {
			records = append(records, cloudjack.RecordSet{
				Name:   rrset.Name,
				Type:   rrset.Type,
				TTL:    rrset.Ttl,
				Values: rrset.Rrdatas,
			})
		}
		return nil
	})
	if err != nil {
		return nil, d.wrap.wrap(err, "ListResourceRecordSets", zoneID)
	}
	return records, nil
}

func (d *DNS) matchingRecords(ctx context.Context, zoneID, name, recordType string) ([]*gdns.ResourceRecordSet, error) {
	var matches []*gdns.ResourceRecordSet
	err := d.svc.ResourceRecordSets.List(d.project, zoneID).
		Name(name).Type(recordType).
		Pages(ctx, func(resp *gdns.ResourceRecordSetsListResponse) error {
			matches = append(matches, resp.Rrsets...)
			return nil
		})
	if err != nil {
		return nil, d.wrap.wrap(err, "ListResourceRecordSets", name)
	}
	return matches, nil
}

func toResourceRecordSet(record cloudjack.RecordSet) *gdns.ResourceRecordSet {
	return &gdns.ResourceRecordSet{
		Name:    fqdn(record.Name),
		Type:    record.Type,
		Ttl:     record.TTL,
		Rrdatas: record.Values,
	}
}

func toZone(zone *gdns.ManagedZone) cloudjack.Zone {
	return cloudjack.Zone{
		ID:      zone.Name,
		Name:    zone.DnsName,
		Private: zone.Visibility == "private",
	}
}

// safeZoneName derives a managed zone name from a domain. Zone names must
// match [a-z][a-z0-9-]*, which domains with dots do not.
func safeZoneName(domain string) string {
	name := strings.TrimSuffix(domain, ".")
	name = strings.ReplaceAll(name, ".", "-")
	return strings.ToLower(name)
}

// fqdn appends the trailing dot Cloud DNS requires on record and zone names.
func fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
