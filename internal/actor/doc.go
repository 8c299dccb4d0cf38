// Package actor defines the closed set of canonical participant roles and the
// boundary normalization that maps arbitrary role strings from the auth
// collaborator onto that set.
//
// The transition guard never compares free-form strings; every caller-supplied
// role passes through Parse exactly once at the system boundary.
package actor
