package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

type fakeRoute53API struct {
	route53API

	createInputs []*route53.CreateHostedZoneInput
	changeInput  *route53.ChangeResourceRecordSetsInput
	deleteErr    error
}

func (f *fakeRoute53API) CreateHostedZone(ctx context.Context, params *route53.CreateHostedZoneInput, optFns ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error) {
	f.createInputs = append(f.createInputs, params)
	return &route53.CreateHostedZoneOutput{
		HostedZone: &r53types.HostedZone{
			Id:   awssdk.String("/hostedzone/Z123"),
			Name: awssdk.String(awssdk.ToString(params.Name)),
		},
	}, nil
}

func (f *fakeRoute53API) DeleteHostedZone(ctx context.Context, params *route53.DeleteHostedZoneInput, optFns ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error) {
	return &route53.DeleteHostedZoneOutput{}, f.deleteErr
}

func (f *fakeRoute53API) ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.changeInput = params
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func newTestDNS(client route53API) *DNS {
	return &DNS{client: client, wrap: newErrorWrapper(cloudjack.ServiceDNS, dnsErrorKinds)}
}

func TestDNSCreateZoneStripsIDPrefix(t *testing.T) {
	client := &fakeRoute53API{}
	d := newTestDNS(client)

	zone, err := d.CreateZone(context.Background(), "example.com", cloudjack.ZoneOptions{Comment: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "Z123", zone.ID)
	assert.Equal(t, "example.com", zone.Name)

	input := client.createInputs[0]
	assert.Equal(t, "prod", awssdk.ToString(input.HostedZoneConfig.Comment))
	assert.NotEmpty(t, awssdk.ToString(input.CallerReference))
}

func TestDNSCreateZoneFreshCallerReference(t *testing.T) {
	client := &fakeRoute53API{}
	d := newTestDNS(client)
	ctx := context.Background()

	_, err := d.CreateZone(ctx, "example.com", cloudjack.ZoneOptions{})
	require.NoError(t, err)
	_, err = d.CreateZone(ctx, "example.com", cloudjack.ZoneOptions{})
	require.NoError(t, err)

	assert.NotEqual(t,
		awssdk.ToString(client.createInputs[0].CallerReference),
		awssdk.ToString(client.createInputs[1].CallerReference))
}

func TestDNSCreateRecordUpserts(t *testing.T) {
	client := &fakeRoute53API{}
	d := newTestDNS(client)

	record := cloudjack.RecordSet{
		Name:   "www.example.com",
		Type:   "A",
		TTL:    300,
		Values: []string{"192.0.2.1", "192.0.2.2"},
	}
	require.NoError(t, d.CreateRecord(context.Background(), "Z123", record))

	change := client.changeInput.ChangeBatch.Changes[0]
	assert.Equal(t, r53types.ChangeActionUpsert, change.Action)
	assert.Equal(t, r53types.RRType("A"), change.ResourceRecordSet.Type)
	assert.Equal(t, int64(300), awssdk.ToInt64(change.ResourceRecordSet.TTL))
	require.Len(t, change.ResourceRecordSet.ResourceRecords, 2)

	require.NoError(t, d.DeleteRecord(context.Background(), "Z123", record))
	assert.Equal(t, r53types.ChangeActionDelete, client.changeInput.ChangeBatch.Changes[0].Action)
}

func TestDNSDeleteMissingZone(t *testing.T) {
	client := &fakeRoute53API{deleteErr: apiError("NoSuchHostedZone")}
	d := newTestDNS(client)

	err := d.DeleteZone(context.Background(), "Z404")
	assert.True(t, cloudjack.IsNotFound(err))
}

func TestToZoneMapsConfig(t *testing.T) {
	zone := toZone(r53types.HostedZone{
		Id:                     awssdk.String("/hostedzone/ZABC"),
		Name:                   awssdk.String("internal.example.com."),
		ResourceRecordSetCount: awssdk.Int64(7),
		Config:                 &r53types.HostedZoneConfig{PrivateZone: true},
	})
	assert.Equal(t, cloudjack.Zone{
		ID:          "ZABC",
		Name:        "internal.example.com.",
		RecordCount: 7,
		Private:     true,
	}, zone)
}
