/*
Package storagemodels defines the data structures shared by entitysync and its
backends.

FindOptions:
Ordering and windowing for condition-based finds:

	opts := storagemodels.FindOptions{
	    Sort:   []storagemodels.SortField{storagemodels.Desc("UpdatedAt")},
	    Offset: 20,
	    Limit:  10,
	}

Page and PageRequest:
Windowed results and the page arithmetic behind them. PageWindow honours a
0- or 1-based first page index:

	opts := storagemodels.PageWindow(2, 10, 1, nil) // Offset 10, Limit 10

QueryParams:
The condition type of the DynamoDB backend:

	params := &storagemodels.QueryParams{
	    KeyConditionExpression: "PK = :pk",
	    ExpressionAttributeValues: map[string]types.AttributeValue{
	        ":pk": &types.AttributeValueMemberS{Value: "USER#123"},
	    },
	    FilterExpression: aws.String("Status = :status"),
	    IndexName:        aws.String("GSI1"),
	}
*/
package storagemodels
