package main

import (
	"context"
)

// bulletin prints the bulletin of a student, or the ranked bulletins of the whole class.
func (cli *commandLine) bulletin(classID, termID, studentID string) error {
	ctx := context.Background()
	if studentID == "" {
		bulletins, err := cli.svc.ClassBulletins(ctx, classID, termID)
		if err != nil {
			return err
		}
		return cli.print(bulletins)
	}

	blt, err := cli.svc.Bulletin(ctx, classID, termID, studentID)
	if err != nil {
		return err
	}
	return cli.print(blt)
}
