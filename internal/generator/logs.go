// Where: pipegen/internal/generator/logs.go
// What: CloudWatch Logs log group for build projects.
package generator

import (
	"github.com/poruru-code/pipegen/internal/config"
	"github.com/poruru-code/pipegen/internal/domain/cfn"
)

// LogGroup returns the shared build log group, or nil when logging is
// disabled or the group is managed outside the stack.
func LogGroup(cfg *config.Config) Resources {
	settings := cfg.Settings.Build.LogGroup
	if !settings.Enabled || !settings.Create {
		return nil
	}

	var retention any = cfn.NoValue()
	if settings.RetentionDays != nil {
		retention = *settings.RetentionDays
	}

	return Resources{
		LogGroupLogicalID: {
			Type: "AWS::Logs::LogGroup",
			Properties: map[string]any{
				"KmsKeyId":        cfn.OptionalValue("KmsKeyArn", cfg.Settings.EncryptionKeyArn),
				"LogGroupName":    cfn.OptionalValue("LogGroupName", settings.Name),
				"RetentionInDays": retention,
			},
		},
	}
}

// logGroupArn is the ARN the build role may write to. A generated group is
// referenced directly; an external group is addressed by name.
func logGroupArn(cfg *config.Config) (any, error) {
	if cfg.Settings.Build.LogGroup.Create {
		return cfn.GetAtt(LogGroupLogicalID, "Arn"), nil
	}
	return cfn.Sub(
		"arn:aws:logs:${AWS::Region}:${AWS::AccountId}:log-group:${LogGroupName}:*",
		map[string]string{"LogGroupName": cfg.Settings.Build.LogGroup.Name},
	)
}
