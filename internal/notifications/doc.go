// Package notifications delivers outcome events to Slack. Delivery is
// fire-and-forget from the stages' point of view: a failed notification is
// logged by the caller and never fails a pipeline run.
package notifications
