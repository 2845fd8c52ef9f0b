/*
Package rules interprets matching-conditions documents: the per-service rule
lists that tell the condition evaluators what to alert on.

Rule keys are matched case-insensitively, but the original spelling is kept
because it becomes part of the deduplication identifier of any alert the
rule raises. Rules are raw maps rather than typed structs; operators edit
these documents by hand and the engine must tolerate unknown keys, string
numbers and mixed case without dropping the whole document.

# Core Components

DefaultConditions:
  - Synthesizes a conditions document for a cluster's first run
  - Always emits all six service blocks in a fixed order: systemHealth,
    ems, snapmirror, storage, quota, vserver
  - The initial* keys decide which rules each block starts with

EMSRule and CompileEMS:
  - Compile the ems block's name/severity/message patterns into regexps
  - An invalid pattern is replaced with one that never matches, and the
    replacement is logged; one bad rule must not silence the others
  - Matches(name, severity, logMessage) evaluates one event

ConsolidateSnapMirror and ConsolidateVserver:
  - Flatten a rule list into one struct of thresholds and switches
  - Later rules win when a key repeats
  - Unknown vserver keys warn, naming the cluster

Value Coercion:
  - Truthy accepts bool true and "true" in any case
  - Number accepts JSON numbers and numeric strings
  - IntSeed parses the initial* values used to seed thresholds

ForEach:
  - Walks a rule list in order, handing each key to the evaluator with
    its lowercase form alongside the original spelling

# Usage

Seeding a new cluster:

	conditions := rules.DefaultConditions(cfg.Initial, cfg.OntapAdminServer)
	if err := states.SaveConditions(ctx, cfg.ConditionsFilename, &conditions); err != nil {
		return err
	}

Evaluating EMS events:

	compiled := rules.CompileEMS(ruleList, clusterName)
	for _, event := range events {
		for _, rule := range compiled {
			if rule.Matches(event.Message.Name, event.Message.Severity, event.LogMessage) {
				// raise alert
			}
		}
	}

# See Also

  - pkg/monitor for the evaluators consuming compiled rules
  - pkg/types for the Conditions and Rule shapes
  - pkg/config for the initial* keys carried into DefaultConditions
*/
package rules
