/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// fakeDynamo is an in-memory API with enough expression support for the
// store: conjunctions of comparisons, begins_with, BETWEEN and
// attribute_exists/attribute_not_exists on the partition key.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]item
	calls map[string]int
	errs  map[string][]error

	// unprocessed makes the next batch call leave its last request
	// unprocessed.
	unprocessed bool
	// indexSortKey maps index names to their sort key attribute.
	indexSortKey map[string]string
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:        make(map[string]item),
		calls:        make(map[string]int),
		errs:         make(map[string][]error),
		indexSortKey: map[string]string{"GSI1": "GSI1SK"},
	}
}

func keyString(key item) string {
	return scalarString(key["PK"]) + "|" + scalarString(key["SK"])
}

func copyItem(in item) item {
	out := make(item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], err)
}

func (f *fakeDynamo) enter(op string) error {
	f.calls[op]++
	if errs := f.errs[op]; len(errs) > 0 {
		f.errs[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeDynamo) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	it, ok := f.items[keyString(in.Key)]
	if !ok {
		return &sdk.GetItemOutput{}, nil
	}
	return &sdk.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *fakeDynamo) BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, _ ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("BatchGetItem"); err != nil {
		return nil, err
	}
	out := &sdk.BatchGetItemOutput{Responses: make(map[string][]item)}
	for table, req := range in.RequestItems {
		keys := req.Keys
		if f.unprocessed && len(keys) > 0 {
			f.unprocessed = false
			out.UnprocessedKeys = map[string]types.KeysAndAttributes{
				table: {Keys: keys[len(keys)-1:]},
			}
			keys = keys[:len(keys)-1]
		}
		for _, key := range keys {
			if it, ok := f.items[keyString(key)]; ok {
				out.Responses[table] = append(out.Responses[table], copyItem(it))
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("BatchWriteItem"); err != nil {
		return nil, err
	}
	out := &sdk.BatchWriteItemOutput{}
	for table, writes := range in.RequestItems {
		if f.unprocessed && len(writes) > 0 {
			f.unprocessed = false
			out.UnprocessedItems = map[string][]types.WriteRequest{table: writes[len(writes)-1:]}
			writes = writes[:len(writes)-1]
		}
		for _, w := range writes {
			if w.PutRequest != nil {
				f.items[keyString(w.PutRequest.Item)] = copyItem(w.PutRequest.Item)
			}
			if w.DeleteRequest != nil {
				delete(f.items, keyString(w.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) conditionHolds(cond *string, names map[string]string, existing item) bool {
	if cond == nil {
		return true
	}
	switch {
	case strings.HasPrefix(*cond, "attribute_not_exists"):
		return existing == nil
	case strings.HasPrefix(*cond, "attribute_exists"):
		return existing != nil
	}
	return true
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	key := keyString(in.Item)
	if !f.conditionHolds(in.ConditionExpression, in.ExpressionAttributeNames, f.items[key]) {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	f.items[key] = copyItem(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	key := keyString(in.Key)
	existing := f.items[key]
	if !f.conditionHolds(in.ConditionExpression, in.ExpressionAttributeNames, existing) {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	updated := copyItem(in.Key)
	for k, v := range existing {
		updated[k] = v
	}
	for _, clause := range strings.Split(strings.TrimPrefix(*in.UpdateExpression, "SET "), ", ") {
		parts := strings.SplitN(clause, " = ", 2)
		updated[resolveName(parts[0], in.ExpressionAttributeNames)] = in.ExpressionAttributeValues[parts[1]]
	}
	f.items[key] = updated
	return &sdk.UpdateItemOutput{Attributes: copyItem(updated)}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	key := keyString(in.Key)
	old, ok := f.items[key]
	if !ok {
		return &sdk.DeleteItemOutput{}, nil
	}
	delete(f.items, key)
	out := &sdk.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

type readRequest struct {
	index     *string
	keyCond   *string
	filter    *string
	names     map[string]string
	values    map[string]types.AttributeValue
	limit     *int32
	start     item
	forward   *bool
	countOnly bool
}

// read evaluates one page. Limit bounds the items examined before the
// filter, as DynamoDB does.
func (f *fakeDynamo) read(r readRequest) (items []item, count int32, last item) {
	sortAttr := "SK"
	if r.index != nil {
		sortAttr = f.indexSortKey[*r.index]
	}

	var candidates []item
	for _, it := range f.items {
		if r.keyCond != nil && !evaluate(*r.keyCond, r.names, r.values, it) {
			continue
		}
		candidates = append(candidates, it)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := scalarString(candidates[i][sortAttr]), scalarString(candidates[j][sortAttr])
		if a == b {
			return keyString(candidates[i]) < keyString(candidates[j])
		}
		return a < b
	})
	if r.forward != nil && !*r.forward {
		for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
	}

	pos := 0
	if r.start != nil {
		startKey := keyString(r.start)
		for i, it := range candidates {
			if keyString(it) == startKey {
				pos = i + 1
				break
			}
		}
	}
	end := len(candidates)
	if r.limit != nil && pos+int(*r.limit) < end {
		end = pos + int(*r.limit)
		last = map[string]types.AttributeValue{
			"PK": candidates[end-1]["PK"],
			"SK": candidates[end-1]["SK"],
		}
	}

	for _, it := range candidates[pos:end] {
		if r.filter != nil && !evaluate(*r.filter, r.names, r.values, it) {
			continue
		}
		count++
		if !r.countOnly {
			items = append(items, copyItem(it))
		}
	}
	return items, count, last
}

func (f *fakeDynamo) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	items, count, last := f.read(readRequest{
		index: in.IndexName, keyCond: in.KeyConditionExpression, filter: in.FilterExpression,
		names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues,
		limit: in.Limit, start: in.ExclusiveStartKey, forward: in.ScanIndexForward,
		countOnly: in.Select == types.SelectCount,
	})
	return &sdk.QueryOutput{Items: items, Count: count, LastEvaluatedKey: last}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	items, count, last := f.read(readRequest{
		index: in.IndexName, filter: in.FilterExpression,
		names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues,
		limit: in.Limit, start: in.ExclusiveStartKey,
		countOnly: in.Select == types.SelectCount,
	})
	return &sdk.ScanOutput{Items: items, Count: count, LastEvaluatedKey: last}, nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

// evaluate supports conjunctions of "a op :v", "begins_with(a, :v)" and
// "a BETWEEN :lo AND :hi". Parentheses around conjuncts are ignored.
func evaluate(expr string, names map[string]string, values map[string]types.AttributeValue, it item) bool {
	tokens := strings.Split(expr, " AND ")
	for i := 0; i < len(tokens); i++ {
		clause := strings.Trim(tokens[i], "()")
		if strings.HasPrefix(clause, "begins_with") {
			args := strings.Split(strings.TrimSuffix(strings.TrimPrefix(clause, "begins_with("), ")"), ", ")
			attr := scalarString(it[resolveName(args[0], names)])
			if _, ok := it[resolveName(args[0], names)]; !ok || !strings.HasPrefix(attr, scalarString(values[args[1]])) {
				return false
			}
			continue
		}
		fields := strings.Fields(clause)
		got, ok := it[resolveName(fields[0], names)]
		if !ok {
			return false
		}
		if fields[1] == "BETWEEN" {
			i++
			hi := strings.Trim(tokens[i], "() ")
			if compare(got, values[fields[2]]) < 0 || compare(got, values[hi]) > 0 {
				return false
			}
			continue
		}
		c := compare(got, values[fields[2]])
		var holds bool
		switch fields[1] {
		case "=":
			holds = c == 0
		case "<>":
			holds = c != 0
		case "<":
			holds = c < 0
		case "<=":
			holds = c <= 0
		case ">":
			holds = c > 0
		case ">=":
			holds = c >= 0
		}
		if !holds {
			return false
		}
	}
	return true
}

func compare(a, b types.AttributeValue) int {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		x, _ := strconv.ParseFloat(an.Value, 64)
		y, _ := strconv.ParseFloat(bn.Value, 64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(scalarString(a), scalarString(b))
}

func strPtr(s string) *string { return &s }

var _ API = (*fakeDynamo)(nil)
