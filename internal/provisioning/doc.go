// Package provisioning composes the registry resource services into the repository creation and removal workflows.
//
// Creation steps run through a Runner that records a compensation for every resource the run actually created.
// When a later step fails the recorded compensations run in reverse order unless rollback is disabled.
package provisioning
