// Package queue manages the list of files waiting to be converted.
//
// Files are identified by their absolute path and read for tags once, when
// they are added. Folders can be scanned recursively or watched for new
// files.
package queue
