package gcp

import (
	"context"
	"strings"
	"time"

	gcompute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

const (
	defaultZone     = "us-central1-a"
	defaultNetwork  = "global/networks/default"
	defaultDiskSize = 10
)

// Compute implements cloudjack.Compute on Compute Engine. Instances are
// addressed by name; operations that need a zone locate the instance via
// the aggregated list first.
type Compute struct {
	svc     *gcompute.Service
	project string
	wrap    errorWrapper
}

var _ cloudjack.Compute = (*Compute)(nil)

// NewCompute builds the Compute Engine adapter.
func NewCompute(ctx context.Context, cfg cloudjack.GCPConfig, extra ...option.ClientOption) (*Compute, error) {
	svc, err := gcompute.NewService(ctx, clientOptions(cfg, extra...)...)
	if err != nil {
		return nil, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderGCP,
			Message:  "creating compute client",
			Cause:    err,
		}
	}
	return &Compute{
		svc:     svc,
		project: cfg.ProjectID,
		wrap:    newErrorWrapper(cloudjack.ServiceCompute),
	}, nil
}

// CreateInstance provisions an instance and waits for the insert operation
// to finish before reading it back.
func (c *Compute) CreateInstance(ctx context.Context, spec cloudjack.InstanceSpec) (cloudjack.Instance, error) {
	zone := defaultZone
	network := defaultNetwork
	subnetwork := ""
	if spec.GCP != nil {
		if spec.GCP.Zone != "" {
			zone = spec.GCP.Zone
		}
		if spec.GCP.Network != "" {
			network = spec.GCP.Network
		}
		subnetwork = spec.GCP.Subnetwork
	}
	diskSize := spec.DiskSizeGB
	if diskSize <= 0 {
		diskSize = defaultDiskSize
	}

	nic := &gcompute.NetworkInterface{
		Network:       network,
		AccessConfigs: []*gcompute.AccessConfig{{Type: "ONE_TO_ONE_NAT", Name: "External NAT"}},
	}
	if subnetwork != "" {
		nic.Subnetwork = subnetwork
	}
	instance := &gcompute.Instance{
		Name:        spec.Name,
		MachineType: "zones/" + zone + "/machineTypes/" + spec.MachineType,
		Disks: []*gcompute.AttachedDisk{{
			Boot:       true,
			AutoDelete: true,
			InitializeParams: &gcompute.AttachedDiskInitializeParams{
				SourceImage: spec.Image,
				DiskSizeGb:  diskSize,
			},
		}},
		NetworkInterfaces: []*gcompute.NetworkInterface{nic},
	}

	op, err := c.svc.Instances.Insert(c.project, zone, instance).Context(ctx).Do()
	if err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "InsertInstance", spec.Name)
	}
	if _, err := c.svc.ZoneOperations.Wait(c.project, zone, op.Name).Context(ctx).Do(); err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "WaitInsert", spec.Name)
	}

	created, err := c.svc.Instances.Get(c.project, zone, spec.Name).Context(ctx).Do()
	if err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "GetInstance", spec.Name)
	}
	return toInstance(created), nil
}

func (c *Compute) StartInstance(ctx context.Context, id string) error {
	zone, err := c.findZone(ctx, id)
	if err != nil {
		return err
	}
	_, err = c.svc.Instances.Start(c.project, zone, id).Context(ctx).Do()
	return c.wrap.wrap(err, "StartInstance", id)
}

func (c *Compute) StopInstance(ctx context.Context, id string) error {
	zone, err := c.findZone(ctx, id)
	if err != nil {
		return err
	}
	_, err = c.svc.Instances.Stop(c.project, zone, id).Context(ctx).Do()
	return c.wrap.wrap(err, "StopInstance", id)
}

func (c *Compute) TerminateInstance(ctx context.Context, id string) error {
	zone, err := c.findZone(ctx, id)
	if err != nil {
		return err
	}
	_, err = c.svc.Instances.Delete(c.project, zone, id).Context(ctx).Do()
	return c.wrap.wrap(err, "DeleteInstance", id)
}

func (c *Compute) GetInstance(ctx context.Context, id string) (cloudjack.Instance, error) {
	zone, err := c.findZone(ctx, id)
	if err != nil {
		return cloudjack.Instance{}, err
	}
	inst, err := c.svc.Instances.Get(c.project, zone, id).Context(ctx).Do()
	if err != nil {
		return cloudjack.Instance{}, c.wrap.wrap(err, "GetInstance", id)
	}
	return toInstance(inst), nil
}

func (c *Compute) ListInstances(ctx context.Context) ([]cloudjack.Instance, error) {
	var instances []cloudjack.Instance
	err := c.svc.Instances.AggregatedList(c.project).Pages(ctx, func(resp *gcompute.InstanceAggregatedList) error {
		for _, scoped := range resp.Items {
			for _, inst := range scoped.Instances {
				instances = append(instances, toInstance(inst))
			}
		}
		return nil
	})
	if err != nil {
		return nil, c.wrap.wrap(err, "AggregatedList", "")
	}
	return instances, nil
}

// findZone resolves the zone an instance lives in by name.
func (c *Compute) findZone(ctx context.Context, name string) (string, error) {
	var zone string
	err := c.svc.Instances.AggregatedList(c.project).
		Filter(`name = "`+name+`"`).
		Pages(ctx, func(resp *gcompute.InstanceAggregatedList) error {
			for _, scoped := range resp.Items {
				for _, inst := range scoped.Instances {
					if inst.Name == name {
						zone = shortName(inst.Zone)
					}
				}
			}
			return nil
		})
	if err != nil {
		return "", c.wrap.wrap(err, "AggregatedList", name)
	}
	if zone == "" {
		return "", cloudjack.NewError(cloudjack.ServiceCompute, cloudjack.KindNotFound,
			"instance not found").
			WithProvider(cloudjack.ProviderGCP).
			WithOp("AggregatedList").
			WithResource(name)
	}
	return zone, nil
}

func toInstance(inst *gcompute.Instance) cloudjack.Instance {
	out := cloudjack.Instance{
		ID:    inst.Name,
		Name:  inst.Name,
		State: strings.ToLower(inst.Status),
		Type:  shortName(inst.MachineType),
		Zone:  shortName(inst.Zone),
	}
	if t, err := time.Parse(time.RFC3339, inst.CreationTimestamp); err == nil {
		out.LaunchTime = t
	}
	if len(inst.NetworkInterfaces) > 0 {
		nic := inst.NetworkInterfaces[0]
		out.PrivateIP = nic.NetworkIP
		if len(nic.AccessConfigs) > 0 {
			out.PublicIP = nic.AccessConfigs[0].NatIP
		}
	}
	return out
}
