// Where: pipegen/internal/domain/ecr/ecr.go
// What: ECR image URI to repository ARN conversion.
// Why: Build projects need pull credentials and IAM grants only for ECR-hosted images.
package ecr

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// ErrNotECR reports an image reference that is not hosted in ECR.
var ErrNotECR = errors.New("URI provided doesn't appear to be an ECR URI")

// <account>.dkr.ecr.<region>.amazonaws.com/<repository>[:tag][@digest]
var repoPattern = regexp.MustCompile(
	`^(\d{12})\.dkr\.ecr\.([a-z]{2}(?:-[a-z]+)+-\d+)\.amazonaws\.com/([a-z0-9._/-]+)` +
		`(?::[\w][\w.-]{0,127})?(?:@sha256:[a-f0-9]{64})?$`,
)

// ARN converts an ECR image URI into the repository ARN.
func ARN(image string) (string, error) {
	match := repoPattern.FindStringSubmatch(image)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrNotECR, image)
	}
	account, region, repository := match[1], match[2], match[3]
	return fmt.Sprintf("arn:aws:ecr:%s:%s:repository/%s", region, account, repository), nil
}

// IsECR reports whether image is an ECR image URI.
func IsECR(image string) bool {
	_, err := ARN(image)
	return err == nil
}

// ARNs maps images to repository ARNs, discarding non-ECR images.
// The result is sorted and free of duplicates.
func ARNs(images []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, image := range images {
		arn, err := ARN(image)
		if err != nil {
			continue
		}
		if _, ok := seen[arn]; ok {
			continue
		}
		seen[arn] = struct{}{}
		out = append(out, arn)
	}
	sort.Strings(out)
	return out
}
