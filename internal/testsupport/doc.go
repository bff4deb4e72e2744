// Package testsupport provides configuration and catalog helpers shared by
// package tests.
package testsupport
