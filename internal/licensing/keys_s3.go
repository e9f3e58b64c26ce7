// internal/licensing/keys_s3.go
package licensing

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3KeyStore keeps the keypair as two objects in a bucket, for deployments
// where the server has no persistent disk. S3 offers no atomic
// create-if-absent here, so concurrent first-run provisioning is guarded by
// running `genkeys` once before any server process starts.
type S3KeyStore struct {
	client *s3.S3
	bucket string
	prefix string
}

func NewS3KeyStore(region, accessKeyID, secretAccessKey, bucket, prefix string) (*S3KeyStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKeyID, secretAccessKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3KeyStore{
		client: s3.New(sess),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3KeyStore) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *S3KeyStore) Load() ([]byte, []byte, error) {
	privPEM, err := s.getObject(PrivateKeyFile)
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := s.getObject(PublicKeyFile)
	if err != nil {
		return nil, nil, err
	}
	return privPEM, pubPEM, nil
}

func (s *S3KeyStore) Save(privPEM, pubPEM []byte) error {
	// Check-then-put; see the provisioning note on the type.
	if _, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(PrivateKeyFile)),
	}); err == nil {
		return fs.ErrExist
	}

	if err := s.putObject(PrivateKeyFile, privPEM); err != nil {
		return err
	}
	return s.putObject(PublicKeyFile, pubPEM)
}

func (s *S3KeyStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3KeyStore) getObject(name string) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			if aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound" {
				return nil, fs.ErrNotExist
			}
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (s *S3KeyStore) putObject(name string, body []byte) error {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/x-pem-file"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	return err
}
