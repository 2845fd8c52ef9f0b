/*
Package secrets resolves cluster credentials from AWS Secrets Manager.

Every cluster's admin username and password live in one secret, stored as a
JSON document. The key names default to "username" and "password" but are
configurable per cluster, since existing secrets predate this engine and
were never renamed.

# Core Components

Resolver:
  - NewResolver(ctx, region, endpointHost) builds a client from ambient
    AWS config, honoring a VPC endpoint override when one is configured
  - Resolve(ctx, secretARN, usernameKey, passwordKey) fetches and decodes
    one secret into Credentials
  - NewResolverFromClient injects the API; tests use it with fakes

Credentials:
  - The username/password pair handed to the cluster client
  - Never logged; error messages name the secret ARN, not its contents

RegionFromARN:
  - Extracts the region so each secret is fetched from the region it
    lives in, which may differ from the engine's own

# Usage

	resolver, err := secrets.NewResolver(ctx, secrets.RegionFromARN(cfg.SecretARN), cfg.SecretsManagerEndpoint)
	if err != nil {
		return err
	}
	creds, err := resolver.Resolve(ctx, cfg.SecretARN, cfg.SecretUsernameKey, cfg.SecretPasswordKey)
	if err != nil {
		return err
	}
	client := ontap.NewClient(cfg.OntapAdminServer, creds.Username, creds.Password)

# See Also

  - pkg/config for the secret ARN and key-name settings
  - pkg/audit for per-file-system secret resolution during ingestion
  - Secrets Manager: https://docs.aws.amazon.com/secretsmanager/
*/
package secrets
