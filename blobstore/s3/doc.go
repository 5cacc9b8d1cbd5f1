// Package s3 implements blobstore.Store on Amazon S3 via aws-sdk-go-v2.
// Uploads go through the transfer manager so large snapshots use multipart
// puts.
package s3
