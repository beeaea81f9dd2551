package sagemaker

import (
	"fmt"
	"sort"
)

const transformContainerRepository = "sagemaker-data-wrangler-container"

// transformContainerAccounts maps a region to the account that hosts the
// transformation container image in that region.
var transformContainerAccounts = map[string]string{
	"af-south-1":     "143210264188",
	"ap-east-1":      "707077482487",
	"ap-northeast-1": "649008135260",
	"ap-northeast-2": "131546521161",
	"ap-south-1":     "089933028263",
	"ap-southeast-1": "119527597002",
	"ap-southeast-2": "422173101802",
	"ca-central-1":   "557239378090",
	"eu-central-1":   "024640144536",
	"eu-north-1":     "054986407534",
	"eu-south-1":     "488287956546",
	"eu-west-1":      "245179582081",
	"eu-west-2":      "894491911112",
	"eu-west-3":      "807237891255",
	"me-south-1":     "376037874950",
	"sa-east-1":      "424196993095",
	"us-east-1":      "663277389841",
	"us-east-2":      "415577184552",
	"us-west-1":      "926135532090",
	"us-west-2":      "174368400705",
}

// ContainerRegistry returns a copy of the region to account lookup table.
func ContainerRegistry() map[string]string {
	out := make(map[string]string, len(transformContainerAccounts))
	for k, v := range transformContainerAccounts {
		out[k] = v
	}
	return out
}

// SupportedRegions lists the regions with a known container image.
func SupportedRegions() []string {
	regions := make([]string, 0, len(transformContainerAccounts))
	for r := range transformContainerAccounts {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// ContainerImageURI returns the transformation image for region and version.
func ContainerImageURI(region, version string) (string, error) {
	account, ok := transformContainerAccounts[region]
	if !ok {
		return "", fmt.Errorf("no transformation container registered for region %q", region)
	}
	if version == "" {
		version = "1.x"
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s:%s", account, region, transformContainerRepository, version), nil
}
