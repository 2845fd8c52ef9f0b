package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/fsx"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/ontapwatch/ontapwatch/pkg/config"
	"github.com/ontapwatch/ontapwatch/pkg/log"
)

// FileSystem is one discovered cluster: its file system id and the address
// of its management endpoint.
type FileSystem struct {
	ID string
	IP string
}

// Discoverer produces the set of clusters to ingest from. The production
// implementation walks the FSx API; tests return a fixed fleet.
type Discoverer interface {
	Discover(ctx context.Context) ([]FileSystem, error)
}

// Discovery finds ONTAP file systems across regions and accounts via the
// FSx API. The configured regions are scanned for the current account
// (unless disabled) and once more per assumable account role.
type Discovery struct {
	cfg    *config.Audit
	awsCfg aws.Config
}

// NewDiscovery builds a Discovery using the ambient AWS credentials.
func NewDiscovery(ctx context.Context, cfg *config.Audit) (*Discovery, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.S3BucketRegion)
	if err != nil {
		return nil, err
	}
	return &Discovery{cfg: cfg, awsCfg: awsCfg}, nil
}

// LoadAWSConfig loads the ambient AWS configuration with the client settings
// used for every AWS call the ingester makes: short timeouts and a small
// adaptive retry budget, so one stuck service cannot eat the whole run.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return awsCfg, nil
}

// Discover scans every configured region, falling back to all regions the
// account knows about when none are configured. A region that cannot be
// scanned is skipped with a warning; file systems whose management endpoint
// has no address yet are silently skipped.
func (d *Discovery) Discover(ctx context.Context) ([]FileSystem, error) {
	regions := d.cfg.Regions
	if len(regions) == 0 {
		out, err := ec2.NewFromConfig(d.awsCfg).DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
		if err != nil {
			return nil, fmt.Errorf("failed to list regions: %w", err)
		}
		for _, region := range out.Regions {
			regions = append(regions, aws.ToString(region.RegionName))
		}
	}

	var fleet []FileSystem
	if d.cfg.ScanCurrentAccount != "no" {
		log.Debug("Scanning regions for file systems in the current account")
		for _, region := range regions {
			client := fsx.NewFromConfig(d.awsCfg, func(o *fsx.Options) { o.Region = region })
			found, err := scanRegion(ctx, client)
			if err != nil {
				log.Logger.Warn().Err(err).Msgf("Skipping region %s.", region)
				continue
			}
			fleet = append(fleet, found...)
		}
	}

	for _, roleARN := range d.cfg.AccountRoles {
		log.Logger.Debug().Msgf("Scanning regions for file systems for account role %s", roleARN)
		for _, region := range regions {
			stsClient := sts.NewFromConfig(d.awsCfg, func(o *sts.Options) { o.Region = region })
			provider := stscreds.NewAssumeRoleProvider(stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = "FSxCrossAccountSession"
			})
			client := fsx.NewFromConfig(d.awsCfg, func(o *fsx.Options) {
				o.Region = region
				o.Credentials = aws.NewCredentialsCache(provider)
			})
			found, err := scanRegion(ctx, client)
			if err != nil {
				log.Logger.Warn().Err(err).Msgf("Skipping region %s for account role %s.", region, roleARN)
				continue
			}
			fleet = append(fleet, found...)
		}
	}
	return fleet, nil
}

// scanRegion lists every file system in one region.
func scanRegion(ctx context.Context, client fsx.DescribeFileSystemsAPIClient) ([]FileSystem, error) {
	var out []FileSystem
	paginator := fsx.NewDescribeFileSystemsPaginator(client, &fsx.DescribeFileSystemsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, fs := range page.FileSystems {
			cfg := fs.OntapConfiguration
			if cfg == nil || cfg.Endpoints == nil || cfg.Endpoints.Management == nil || len(cfg.Endpoints.Management.IpAddresses) == 0 {
				// Management endpoint not assigned yet
				continue
			}
			out = append(out, FileSystem{
				ID: aws.ToString(fs.FileSystemId),
				IP: cfg.Endpoints.Management.IpAddresses[0],
			})
		}
	}
	return out, nil
}
