package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
)

// AWSTerminateMaxWait bounds the terminated waiter. Callers cannot shorten
// it; it matches the stock EC2 waiter budget of 40 attempts at 15s.
var AWSTerminateMaxWait = 10 * time.Minute

var awsActions = domain.NewActionSet(
	domain.ActionStart,
	domain.ActionStop,
	domain.ActionForceStop,
	domain.ActionReboot,
	domain.ActionTerminate,
	domain.ActionDiagnosticInterrupt,
)

// ec2API is the subset of the EC2 client the connector uses.
type ec2API interface {
	ec2.DescribeInstancesAPIClient
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	SendDiagnosticInterrupt(ctx context.Context, params *ec2.SendDiagnosticInterruptInput, optFns ...func(*ec2.Options)) (*ec2.SendDiagnosticInterruptOutput, error)
}

// AWSConnector controls one EC2 instance.
type AWSConnector struct {
	client     ec2API
	instanceID string

	// waiterDelay overrides the waiters' retry delay when set.
	waiterDelay time.Duration
}

// NewAWSConnector wraps an EC2 client for the given instance.
func NewAWSConnector(client ec2API, instanceID string) *AWSConnector {
	return &AWSConnector{client: client, instanceID: instanceID}
}

// RegisterAWS registers the EC2 backend factory with the global registry.
// Credentials come from the node, then the keychain ("ACCESS_KEY_ID:SECRET"),
// then the SDK default chain.
func RegisterAWS() {
	Register("aws", awsActions, func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
		if node.ID == "" {
			return nil, errors.New("aws: instance ID is required")
		}

		creds, err := resolveCredentials("aws", node, store)
		if err != nil {
			return nil, err
		}

		var opts []func(*awsconfig.LoadOptions) error
		if node.Region != "" {
			opts = append(opts, awsconfig.WithRegion(node.Region))
		}
		if creds.KeyID != "" && creds.Secret != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(creds.KeyID, creds.Secret, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("aws: failed to load config: %w", err)
		}

		return NewAWSConnector(ec2.NewFromConfig(cfg), node.ID), nil
	})
}

func (c *AWSConnector) Name() string { return "aws" }

func (c *AWSConnector) SupportedActions() domain.ActionSet { return awsActions }

// RestartsInPlace reports true for reboot: an EC2 reboot keeps the
// instance in the running state throughout.
func (c *AWSConnector) RestartsInPlace(action domain.Action) bool {
	return action == domain.ActionReboot
}

func (c *AWSConnector) ids() []string { return []string{c.instanceID} }

func (c *AWSConnector) Issue(ctx context.Context, action domain.Action) error {
	var err error
	switch action {
	case domain.ActionStart:
		_, err = c.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: c.ids()})
	case domain.ActionStop:
		_, err = c.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: c.ids(), Force: aws.Bool(false)})
	case domain.ActionForceStop:
		_, err = c.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: c.ids(), Force: aws.Bool(true)})
	case domain.ActionReboot:
		_, err = c.client.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: c.ids()})
	case domain.ActionTerminate:
		_, err = c.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: c.ids()})
	case domain.ActionDiagnosticInterrupt:
		_, err = c.client.SendDiagnosticInterrupt(ctx, &ec2.SendDiagnosticInterruptInput{InstanceId: aws.String(c.instanceID)})
	default:
		return fmt.Errorf("aws: no mapping for action %s", action)
	}
	if err != nil {
		return classifyAWSError(err, fmt.Sprintf("failed to %s instance %s", action, c.instanceID))
	}
	return nil
}

// PowerState describes the instance. Only "running" counts as on; an
// instance EC2 no longer knows about is gone.
func (c *AWSConnector) PowerState(ctx context.Context) (domain.Observation, error) {
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: c.ids()})
	if err != nil {
		if awsErrorCode(err) == "InvalidInstanceID.NotFound" {
			return domain.Observation{State: domain.PowerGone, Raw: "not-found"}, nil
		}
		return domain.Observation{}, classifyAWSError(err, "failed to describe instance "+c.instanceID)
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			if aws.ToString(inst.InstanceId) != c.instanceID || inst.State == nil {
				continue
			}
			return instanceObservation(inst.State.Name), nil
		}
	}
	return domain.Observation{State: domain.PowerGone, Raw: "not-found"}, nil
}

func instanceObservation(name types.InstanceStateName) domain.Observation {
	switch name {
	case types.InstanceStateNameRunning:
		return domain.Observation{State: domain.PowerOn, Raw: string(name)}
	case types.InstanceStateNameTerminated:
		return domain.Observation{State: domain.PowerGone, Raw: string(name)}
	default:
		return domain.Observation{State: domain.PowerOff, Raw: string(name)}
	}
}

// WaitUntil blocks on the EC2 running or stopped waiter.
func (c *AWSConnector) WaitUntil(ctx context.Context, state domain.PowerState, timeout time.Duration) error {
	params := &ec2.DescribeInstancesInput{InstanceIds: c.ids()}

	var err error
	switch state {
	case domain.PowerOn:
		w := ec2.NewInstanceRunningWaiter(c.client, func(o *ec2.InstanceRunningWaiterOptions) {
			if c.waiterDelay > 0 {
				o.MinDelay, o.MaxDelay = c.waiterDelay, c.waiterDelay
			}
		})
		err = w.Wait(ctx, params, timeout)
	case domain.PowerOff:
		w := ec2.NewInstanceStoppedWaiter(c.client, func(o *ec2.InstanceStoppedWaiterOptions) {
			if c.waiterDelay > 0 {
				o.MinDelay, o.MaxDelay = c.waiterDelay, c.waiterDelay
			}
		})
		err = w.Wait(ctx, params, timeout)
	default:
		return fmt.Errorf("aws: cannot wait for power %s", state)
	}
	return c.waitError(ctx, err)
}

// WaitUntilTerminal blocks on the EC2 terminated waiter.
func (c *AWSConnector) WaitUntilTerminal(ctx context.Context) error {
	w := ec2.NewInstanceTerminatedWaiter(c.client, func(o *ec2.InstanceTerminatedWaiterOptions) {
		if c.waiterDelay > 0 {
			o.MinDelay, o.MaxDelay = c.waiterDelay, c.waiterDelay
		}
	})
	err := w.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: c.ids()}, AWSTerminateMaxWait)
	return c.waitError(ctx, err)
}

// waitError separates API failures from a waiter that simply gave up.
// The waiter reports both exhaustion and failure states as plain errors;
// either way the final read decides the outcome.
func (c *AWSConnector) waitError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classifyAWSError(err, "failed waiting for instance "+c.instanceID)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
}

func awsErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// classifyAWSError wraps the matching domain sentinel around err.
func classifyAWSError(err error, msg string) error {
	switch awsErrorCode(err) {
	case "AuthFailure", "UnauthorizedOperation":
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrUnauthorized, err)
	case "RequestLimitExceeded":
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrRateLimited, err)
	case "IncorrectInstanceState":
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrConflict, err)
	case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
		return fmt.Errorf("%s: %w: %v", msg, domain.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
