package aws

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

type fakeEC2API struct {
	ec2API

	runInput     *ec2.RunInstancesInput
	describeErr  error
	describeOut  *ec2.DescribeInstancesOutput
	startedIDs   []string
	terminateIDs []string
}

func (f *fakeEC2API) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.runInput = params
	return &ec2.RunInstancesOutput{
		Instances: []ec2types.Instance{{
			InstanceId:   awssdk.String("i-0abc"),
			InstanceType: ec2types.InstanceType(params.InstanceType),
			State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending},
		}},
	}, nil
}

func (f *fakeEC2API) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	f.startedIDs = params.InstanceIds
	return &ec2.StartInstancesOutput{}, nil
}

func (f *fakeEC2API) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	f.terminateIDs = params.InstanceIds
	return &ec2.TerminateInstancesOutput{}, nil
}

func (f *fakeEC2API) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if f.describeOut != nil {
		return f.describeOut, nil
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func newTestCompute(client ec2API) *Compute {
	return &Compute{client: client, wrap: newErrorWrapper(cloudjack.ServiceCompute, computeErrorKinds)}
}

func TestComputeCreateInstance(t *testing.T) {
	client := &fakeEC2API{}
	c := newTestCompute(client)

	instance, err := c.CreateInstance(context.Background(), cloudjack.InstanceSpec{
		Name:        "web-1",
		Image:       "ami-12345",
		MachineType: "t3.micro",
		AWS: &cloudjack.AWSInstanceOptions{
			KeyName:          "deploy",
			SecurityGroupIDs: []string{"sg-1"},
			SubnetID:         "subnet-1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "i-0abc", instance.ID)
	assert.Equal(t, "pending", instance.State)

	input := client.runInput
	assert.Equal(t, "ami-12345", awssdk.ToString(input.ImageId))
	assert.Equal(t, ec2types.InstanceType("t3.micro"), input.InstanceType)
	assert.Equal(t, int32(1), awssdk.ToInt32(input.MinCount))
	assert.Equal(t, "deploy", awssdk.ToString(input.KeyName))
	assert.Equal(t, []string{"sg-1"}, input.SecurityGroupIds)
	assert.Equal(t, "subnet-1", awssdk.ToString(input.SubnetId))

	require.Len(t, input.TagSpecifications, 1)
	assert.Equal(t, ec2types.ResourceTypeInstance, input.TagSpecifications[0].ResourceType)
	assert.Equal(t, "web-1", awssdk.ToString(input.TagSpecifications[0].Tags[0].Value))
}

func TestComputeStartAndTerminate(t *testing.T) {
	client := &fakeEC2API{}
	c := newTestCompute(client)
	ctx := context.Background()

	require.NoError(t, c.StartInstance(ctx, "i-0abc"))
	assert.Equal(t, []string{"i-0abc"}, client.startedIDs)

	require.NoError(t, c.TerminateInstance(ctx, "i-0abc"))
	assert.Equal(t, []string{"i-0abc"}, client.terminateIDs)
}

func TestComputeGetInstanceNotFound(t *testing.T) {
	c := newTestCompute(&fakeEC2API{describeErr: apiError("InvalidInstanceID.NotFound")})
	_, err := c.GetInstance(context.Background(), "i-404")
	assert.True(t, cloudjack.IsNotFound(err))

	// An empty reservation list means the instance is gone too.
	c = newTestCompute(&fakeEC2API{})
	_, err = c.GetInstance(context.Background(), "i-404")
	assert.True(t, cloudjack.IsNotFound(err))
}

func TestComputeListInstancesFlattensReservations(t *testing.T) {
	launch := time.Now().Add(-2 * time.Hour)
	client := &fakeEC2API{
		describeOut: &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{{
					InstanceId:       awssdk.String("i-1"),
					InstanceType:     ec2types.InstanceTypeT3Micro,
					State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
					LaunchTime:       awssdk.Time(launch),
					PublicIpAddress:  awssdk.String("198.51.100.1"),
					PrivateIpAddress: awssdk.String("10.0.0.1"),
					Placement:        &ec2types.Placement{AvailabilityZone: awssdk.String("us-east-1a")},
					Tags: []ec2types.Tag{{
						Key:   awssdk.String("Name"),
						Value: awssdk.String("web-1"),
					}},
				}}},
				{Instances: []ec2types.Instance{{InstanceId: awssdk.String("i-2")}}},
			},
		},
	}
	c := newTestCompute(client)

	instances, err := c.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)

	assert.Equal(t, cloudjack.Instance{
		ID:         "i-1",
		Name:       "web-1",
		State:      "running",
		Type:       "t3.micro",
		LaunchTime: launch,
		PublicIP:   "198.51.100.1",
		PrivateIP:  "10.0.0.1",
		Zone:       "us-east-1a",
	}, instances[0])
	assert.Equal(t, "i-2", instances[1].ID)
}
