package aws

import (
	"context"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/google/uuid"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// route53API is the slice of the Route 53 client this adapter uses.
type route53API interface {
	CreateHostedZone(ctx context.Context, params *route53.CreateHostedZoneInput, optFns ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error)
	DeleteHostedZone(ctx context.Context, params *route53.DeleteHostedZoneInput, optFns ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error)
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// DNS implements cloudjack.DNS on Route 53.
type DNS struct {
	client route53API
	wrap   errorWrapper
}

var _ cloudjack.DNS = (*DNS)(nil)

// NewDNS builds the Route 53 adapter.
func NewDNS(cfg awssdk.Config) *DNS {
	return &DNS{
		client: route53.NewFromConfig(cfg),
		wrap:   newErrorWrapper(cloudjack.ServiceDNS, dnsErrorKinds),
	}
}

func (d *DNS) CreateZone(ctx context.Context, domain string, opts cloudjack.ZoneOptions) (cloudjack.Zone, error) {
	input := &route53.CreateHostedZoneInput{
		Name: awssdk.String(domain),
		// Retried creates must not collide, so every call gets a fresh
		// reference.
		CallerReference: awssdk.String(uuid.NewString()),
	}
	if opts.Comment != "" || opts.Private {
		input.HostedZoneConfig = &r53types.HostedZoneConfig{
			PrivateZone: opts.Private,
		}
		if opts.Comment != "" {
			input.HostedZoneConfig.Comment = awssdk.String(opts.Comment)
		}
	}

	out, err := d.client.CreateHostedZone(ctx, input)
	if err != nil {
		return cloudjack.Zone{}, d.wrap.wrap(err, "CreateHostedZone", domain)
	}
	return toZone(*out.HostedZone), nil
}

func (d *DNS) DeleteZone(ctx context.Context, zoneID string) error {
	_, err := d.client.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{Id: awssdk.String(zoneID)})
	return d.wrap.wrap(err, "DeleteHostedZone", zoneID)
}

func (d *DNS) ListZones(ctx context.Context) ([]cloudjack.Zone, error) {
	var zones []cloudjack.Zone
	var marker *string
	for {
		out, err := d.client.ListHostedZones(ctx, &route53.ListHostedZonesInput{Marker: marker})
		if err != nil {
			return nil, d.wrap.wrap(err, "ListHostedZones", "")
		}
		for _, hz := range out.HostedZones {
			zones = append(zones, toZone(hz))
		}
		if !out.IsTruncated {
			break
		}
		marker = out.NextMarker
	}
	return zones, nil
}

// CreateRecord upserts, so re-creating an existing record set replaces it.
func (d *DNS) CreateRecord(ctx context.Context, zoneID string, record cloudjack.RecordSet) error {
	return d.changeRecord(ctx, zoneID, r53types.ChangeActionUpsert, record, "ChangeResourceRecordSets")
}

func (d *DNS) DeleteRecord(ctx context.Context, zoneID string, record cloudjack.RecordSet) error {
	return d.changeRecord(ctx, zoneID, r53types.ChangeActionDelete, record, "ChangeResourceRecordSets")
}

func (d *DNS) changeRecord(ctx context.Context, zoneID string, action r53types.ChangeAction, record cloudjack.RecordSet, op string) error {
	records := make([]r53types.ResourceRecord, 0, len(record.Values))
	for _, v := range record.Values {
		records = append(records, r53types.ResourceRecord{Value: awssdk.String(v)})
	}
	_, err := d.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: awssdk.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{{
				Action: action,
				ResourceRecordSet: &r53types.ResourceRecordSet{
					Name:            awssdk.String(record.Name),
					Type:            r53types.RRType(record.Type),
					TTL:             awssdk.Int64(record.TTL),
					ResourceRecords: records,
				},
			}},
		},
	})
	return d.wrap.wrap(err, op, record.Name)
}

func (d *DNS) ListRecords(ctx context.Context, zoneID string) ([]cloudjack.RecordSet, error) {
	var records []cloudjack.RecordSet
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: awssdk.String(zoneID)}
	for {
		out, err := d.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, d.wrap.wrap(err, "ListResourceRecordSets", zoneID)
		}
		for _, rrs := range out.ResourceRecordSets {
			values := make([]string, 0, len(rrs.ResourceRecords))
			for _, rr := range rrs.ResourceRecords {
				values = append(values, awssdk.ToString(rr.Value))
			}
			records = append(records, cloudjack.RecordSet{
				Name:   awssdk.ToString(rrs.Name),
				Type:   string(rrs.Type),
				TTL:    awssdk.ToInt64(rrs.TTL),
				Values: values,
			})
		}
		if !out.IsTruncated {
			break
		}
		input.StartRecordName = out.NextRecordName
		input.StartRecordType = out.NextRecordType
		input.StartRecordIdentifier = out.NextRecordIdentifier
	}
	return records, nil
}

func toZone(hz r53types.HostedZone) cloudjack.Zone {
	zone := cloudjack.Zone{
		// Route 53 returns IDs as /hostedzone/Z123; record operations
		// accept the bare ID.
		ID:          strings.TrimPrefix(awssdk.ToString(hz.Id), "/hostedzone/"),
		Name:        awssdk.ToString(hz.Name),
		RecordCount: awssdk.ToInt64(hz.ResourceRecordSetCount),
	}
	if hz.Config != nil {
		zone.Private = hz.Config.PrivateZone
	}
	return zone
}
