package client

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/log"
	"github.com/baetyl/baetyl-go/v2/utils"

	"github.com/baetyl/baetyl-endpoint/v2/config"
)

type S3ClientCfg struct {
	Address string        `yaml:"address" json:"address" validate:"nonzero"`
	Region  string        `yaml:"region" json:"region" default:"us-east-1"`
	Ak      string        `yaml:"ak" json:"ak"`
	Sk      string        `yaml:"sk" json:"sk"`
	Bucket  string        `yaml:"bucket" json:"bucket" validate:"nonzero"`
	Token   string        `yaml:"token,omitempty" json:"token,omitempty" default:""`
	Timeout time.Duration `yaml:"timeout" json:"timeout" default:"1m"`
}

type S3Client struct {
	cfg      *S3ClientCfg
	uploader *s3manager.Uploader
	tasks    chan *config.TargetMsg
	tomb     utils.Tomb
	logger   *log.Logger
}

func NewS3Client(cfg *S3ClientCfg) (Client, error) {
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.Ak, cfg.Sk, cfg.Token),
		Endpoint:         aws.String(cfg.Address),
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(!strings.HasPrefix(cfg.Address, "https")),
		S3ForcePathStyle: aws.Bool(true),
	}
	sessionProvider, err := session.NewSession(s3Config)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &S3Client{
		cfg:      cfg,
		uploader: s3manager.NewUploader(sessionProvider),
		tasks:    make(chan *config.TargetMsg, config.TaskLength),
		logger:   log.With(log.Any("storage", "s3"), log.Any("bucket", cfg.Bucket)),
	}, nil
}

// PutObject uploads the manifest, the target path is the object key
func (s *S3Client) PutObject(task *config.TargetMsg) error {
	key := strings.TrimPrefix(task.TargetInfo.Path, "/")
	if key == "" {
		return errors.Errorf("object key of profile (%s) is empty", task.Profile)
	}
	params := &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(task.Data),
		ContentType: aws.String("application/json"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	_, err := s.uploader.UploadWithContext(ctx, params)
	if err != nil {
		return errors.Trace(err)
	}
	s.logger.Debug("upload manifest", log.Any("key", key))
	return nil
}

func (s *S3Client) SendOrDrop(msg *config.TargetMsg) error {
	select {
	case <-s.tomb.Dying():
		return errors.New("ctx done")
	case s.tasks <- msg:
		return nil
	}
}

func (s *S3Client) Start() error {
	return s.tomb.Go(func() error {
		for {
			select {
			case <-s.tomb.Dying():
				return nil
			case task := <-s.tasks:
				err := s.PutObject(task)
				if err != nil {
					s.logger.Error("failed to upload manifest", log.Error(err))
				}
			}
		}
	})
}

// Close closes client
func (s *S3Client) Close() error {
	s.tomb.Kill(nil)
	err := s.tomb.Wait()
	if err != nil {
		s.logger.Error("failed to wait on tomb", log.Error(err))
	}
	return nil
}
