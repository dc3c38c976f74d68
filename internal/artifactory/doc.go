// Package artifactory provides typed clients for the package-registry security and
// repository management REST APIs.
//
// It defines the shared Client carrying the base endpoint and authentication header,
// the RepositoryService, GroupService, PermissionService and UserService resource
// clients, the Outcome values that distinguish created, already present and removed
// resources, and the ConfigurationError and RemoteError failure types. The package
// powers the provisioning workflow and the CLI commands.
package artifactory
