package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// ec2API is the slice of the EC2 client this adapter uses.
type ec2API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Compute implements cloudjack.Compute on EC2.
type Compute struct {
	client ec2API
	wrap   errorWrapper
}

var _ cloudjack.Compute = (*Compute)(nil)

// NewCompute builds the EC2 adapter.
func NewCompute(cfg awssdk.Config) *Compute {
	return &Compute{
		client: ec2.NewFromConfig(cfg),
		wrap:   newErrorWrapper(cloudjack.ServiceCompute, computeErrorKinds),
	}
}

func (c *Compute) CreateInstance(ctx context.Context, spec cloudjack.InstanceSpec) (cloudjack.Instance, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(spec.Image),
		InstanceType: ec2types.InstanceType(spec.MachineType),
		MinCount:     awssdk.Int32(1),
		MaxCount:     awssdk.Int32(1),
	}
	if spec.Name != "" {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{{
				Key:   awssdk.String("Name"),
				Value: awssdk.String(spec.Name),
			}},
		}}
	}
	if o := spec.AWS; o != nil {
		if o.KeyName != "" {
			input.KeyName = awssdk.String(o.KeyName)
		}
		if len(o.SecurityGroupIDs) > 0 {
			input.SecurityGroupIds = o.SecurityGroupIDs
		}
		if o.SubnetID != "" {
			input.SubnetId = awssdk.String(o.SubnetID)
		}
		if o.UserData != "" {
			input.UserData = awssdk.String(o.UserData)
		}
	}

	out, err := c.client.RunInstances(ctx, input)
	if err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "RunInstances", spec.Name)
	}
	if len(out.Instances) == 0 {
		return cloudjack.Instance{}, cloudjack.NewError(cloudjack.ServiceCompute, cloudjack.KindGeneric,
			"RunInstances returned no instances").
			WithProvider(cloudjack.ProviderAWS).
			WithOp("RunInstances")
	}
	return toInstance(out.Instances[0]), nil
}

func (c *Compute) StartInstance(ctx context.Context, id string) error {
	_, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{id}})
	return c.wrap.wrap(err, "StartInstances", id)
}

func (c *Compute) StopInstance(ctx context.Context, id string) error {
	_, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	return c.wrap.wrap(err, "StopInstances", id)
}

func (c *Compute) TerminateInstance(ctx context.Context, id string) error {
	_, err := c.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{id}})
	return c.wrap.wrap(err, "TerminateInstances", id)
}

func (c *Compute) GetInstance(ctx context.Context, id string) (cloudjack.Instance, error) {
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "DescribeInstances", id)
	}
	for _, reservation := range out.Reservations {
		for _, instance := range reservation.Instances {
			return toInstance(instance), nil
		}
	}
	return cloudjack.Instance{}, cloudjack.NewError(cloudjack.ServiceCompute, cloudjack.KindNotFound,
		id+" not found").
		WithProvider(cloudjack.ProviderAWS).
		WithOp("DescribeInstances").
		WithResource(id)
}

func (c *Compute) ListInstances(ctx context.Context) ([]cloudjack.Instance, error) {
	var instances []cloudjack.Instance
	var nextToken *string
	for {
		out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, c.wrap.wrap(err, "DescribeInstances", "")
		}
		for _, reservation := range out.Reservations {
			for _, instance := range reservation.Instances {
				instances = append(instances, toInstance(instance))
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return instances, nil
}

func toInstance(in ec2types.Instance) cloudjack.Instance {
	instance := cloudjack.Instance{
		ID:        awssdk.ToString(in.InstanceId),
		Type:      string(in.InstanceType),
		PublicIP:  awssdk.ToString(in.PublicIpAddress),
		PrivateIP: awssdk.ToString(in.PrivateIpAddress),
	}
	if in.State != nil {
		instance.State = string(in.State.Name)
	}
	if in.LaunchTime != nil {
		instance.LaunchTime = *in.LaunchTime
	}
	if in.Placement != nil {
		instance.Zone = awssdk.ToString(in.Placement.AvailabilityZone)
	}
	for _, tag := range in.Tags {
		if awssdk.ToString(tag.Key) == "Name" {
			instance.Name = awssdk.ToString(tag.Value)
			break
		}
	}
	return instance
}
