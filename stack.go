package cloudmere

import (
	"context"
	"slices"
	"time"

	"github.com/cloudmere/cloudmere-go/internal/requestconfig"
	"github.com/cloudmere/cloudmere-go/option"
)

type StackService struct {
	Options []option.RequestOption
}

func NewStackService(opts ...option.RequestOption) *StackService {
	s := &StackService{opts}
	return s
}

func (s *StackService) Describe(ctx context.Context, params StackDescribeParams, opts ...option.RequestOption) (*StackDescribeResult, error) {
	opts = slices.Concat(s.Options, opts)

	res := &StackDescribeResult{}
	err := requestconfig.ExecuteNewRequest(ctx, "DescribeStacks", params, res, opts...)

	return res, err
}

func (s *StackService) Tag(ctx context.Context, params StackTagParams, opts ...option.RequestOption) error {
	opts = slices.Concat(s.Options, opts)
	if params.StackName == "" {
		return ErrMissingStackName
	}

	err := requestconfig.ExecuteNewRequest(ctx, "TagStack", params, nil, opts...)

	return err
}

type StackDescribeParams struct {
	StackName  string   `query:"StackName,omitempty"`
	MaxResults int      `query:"MaxResults,omitempty"`
	NextToken  *string  `query:"NextToken"`
	Filters    []Filter `query:"Filters"`
}

// Filter narrows a Describe call; on the wire it becomes
// Filters.member.N.Name / Filters.member.N.Values.member.M.
type Filter struct {
	Name   string   `query:"Name"`
	Values []string `query:"Values"`
}

type StackDescribeResult struct {
	Stacks    []Stack `json:"Stacks"`
	NextToken *string `json:"NextToken"`
}

type Stack struct {
	StackName string    `json:"StackName"`
	Status    string    `json:"Status"`
	CreatedAt time.Time `json:"CreatedAt"`
	Tags      []Tag     `json:"Tags"`
}

type StackTagParams struct {
	StackName string `query:"StackName"`
	// Tags use the flattened list form: Tags.N.Key / Tags.N.Value.
	Tags []Tag `query:"Tags,flattened"`
}

type Tag struct {
	Key   string `query:"Key" json:"Key"`
	Value string `query:"Value" json:"Value"`
}
