// Package workflowspec decodes workflow specs from YAML or JSON documents.
//
// A spec document holds one workflow:
//
//	name: nightly-report
//	instructions:
//	  - type: data_operation
//	    action: Load.Users
//	    parameters: {table: users}
//
// A bootstrap document lists several under a workflows key.
package workflowspec
